package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

// Store is the Postgres persistence adapter. Saves replace the whole
// collection inside one transaction.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS document_metadata (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	sha256 TEXT NOT NULL,
	payload JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_metadata_position ON document_metadata(position);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	entry_date TEXT NOT NULL,
	narration TEXT NOT NULL,
	debit_account TEXT NOT NULL,
	credit_account TEXT NOT NULL,
	amount NUMERIC(18,2) NOT NULL,
	source_document_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_entries_source ON ledger_entries(source_document_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *Store) LoadDocuments(ctx context.Context) ([]domain.DocumentMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT payload
FROM document_metadata
ORDER BY position ASC
`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.DocumentMetadata
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var meta domain.DocumentMetadata
		if err := json.Unmarshal(payload, &meta); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
		docs = append(docs, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (s *Store) SaveDocuments(ctx context.Context, docs []domain.DocumentMetadata) error {
	return s.replaceAll(ctx, "document_metadata", func(tx *sql.Tx) error {
		for i, doc := range docs {
			payload, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("marshal document %s: %w", doc.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO document_metadata (id, position, name, status, sha256, payload)
VALUES ($1,$2,$3,$4,$5,$6)
`, doc.ID, i, doc.Name, string(doc.Status), doc.ContentHash, payload); err != nil {
				return fmt.Errorf("insert document %s: %w", doc.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) LoadLedger(ctx context.Context) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, entry_date, narration, debit_account, credit_account, amount, source_document_id, created_at
FROM ledger_entries
ORDER BY position ASC
`)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.Date, &e.Narration, &e.DebitAccount, &e.CreditAccount,
			&e.Amount, &e.SourceDocumentID, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return entries, nil
}

func (s *Store) SaveLedger(ctx context.Context, entries []domain.LedgerEntry) error {
	return s.replaceAll(ctx, "ledger_entries", func(tx *sql.Tx) error {
		for i, e := range entries {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO ledger_entries (id, position, entry_date, narration, debit_account, credit_account, amount, source_document_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, e.ID, i, e.Date, e.Narration, e.DebitAccount, e.CreditAccount, e.Amount.StringFixed(2), e.SourceDocumentID, e.CreatedAt); err != nil {
				return fmt.Errorf("insert ledger entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// replaceAll clears table and refills it through insert in a single transaction.
func (s *Store) replaceAll(ctx context.Context, table string, insert func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s tx: %w", table, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s tx: %w", table, err)
	}
	return nil
}
