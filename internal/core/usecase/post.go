package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/core/ports"
	"github.com/kirillkom/document-ledger/internal/core/registry"
)

// PostRecorder counts successful postings.
type PostRecorder interface {
	RecordPost()
}

// LedgerUseCase posts validated documents and owns the in-memory ledger.
type LedgerUseCase struct {
	registry      *registry.Registry
	persistence   ports.PersistenceAdapter
	mappings      ports.MappingStore
	exporter      ports.LedgerExporter
	recorder      PostRecorder
	defaultAmount decimal.Decimal
	newID         func() string

	mu      sync.Mutex
	entries []domain.LedgerEntry
}

func NewLedgerUseCase(
	reg *registry.Registry,
	persistence ports.PersistenceAdapter,
	mappings ports.MappingStore,
	exporter ports.LedgerExporter,
	recorder PostRecorder,
	defaultAmount string,
) (*LedgerUseCase, error) {
	amount, err := parseAmount(defaultAmount)
	if err != nil {
		return nil, fmt.Errorf("default ledger amount: %w", err)
	}
	return &LedgerUseCase{
		registry:      reg,
		persistence:   persistence,
		mappings:      mappings,
		exporter:      exporter,
		recorder:      recorder,
		defaultAmount: amount,
		newID:         uuid.NewString,
	}, nil
}

// Load restores the persisted ledger.
func (uc *LedgerUseCase) Load(ctx context.Context) error {
	entries, err := uc.persistence.LoadLedger(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	uc.mu.Lock()
	uc.entries = entries
	uc.mu.Unlock()
	return nil
}

// Post books exactly one entry for a Validated document. A second call, even
// a concurrent one, fails with ErrPostingConflict.
func (uc *LedgerUseCase) Post(ctx context.Context, documentID string, opts domain.PostOptions) (*domain.LedgerEntry, error) {
	doc, err := uc.registry.Get(documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status == domain.StatusPosted || len(doc.PostedLedgerEntryIDs) > 0 {
		return nil, domain.WrapError(domain.ErrPostingConflict, "post document", fmt.Errorf("document %s already posted", documentID))
	}
	if doc.Status != domain.StatusValidated {
		return nil, domain.WrapError(domain.ErrPostingConflict, "post document", fmt.Errorf("document %s is %s", documentID, doc.Status))
	}

	amount := uc.defaultAmount
	if opts.Amount != "" {
		if amount, err = parseAmount(opts.Amount); err != nil {
			return nil, err
		}
	}
	date := uc.registry.Now().Format(domain.LedgerDateLayout)
	if opts.Date != "" {
		if _, err := time.Parse(domain.LedgerDateLayout, opts.Date); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "post document", fmt.Errorf("date must be YYYY-MM-DD: %w", err))
		}
		date = opts.Date
	}

	mappings, err := uc.mappings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger mappings: %w", err)
	}
	debit, credit := domain.AccountReceivable, domain.AccountSales
	if doc.Type.IsPurchaseSide() {
		debit, credit = domain.AccountPurchases, domain.AccountPayable
	}

	entry := domain.LedgerEntry{
		ID:               uc.newID(),
		Date:             date,
		Narration:        fmt.Sprintf("Posted from %s", doc.Name),
		DebitAccount:     domain.LedgerCode(mappings, debit),
		CreditAccount:    domain.LedgerCode(mappings, credit),
		Amount:           amount,
		SourceDocumentID: doc.ID,
		CreatedAt:        uc.registry.Now(),
	}

	message := fmt.Sprintf("Transaction posted to ledger with entry ID %s.", entry.ID)
	if _, err := uc.registry.MarkPosted(ctx, documentID, entry.ID, message); err != nil {
		return nil, err
	}

	uc.mu.Lock()
	uc.entries = append(uc.entries, entry)
	snapshot := append([]domain.LedgerEntry(nil), uc.entries...)
	err = uc.persistence.SaveLedger(ctx, snapshot)
	uc.mu.Unlock()
	if err != nil {
		slog.Error("ledger_persist_failed", "document_id", documentID, "entry_id", entry.ID, "error", err)
	}

	if uc.recorder != nil {
		uc.recorder.RecordPost()
	}
	slog.Info("document_posted", "document_id", documentID, "entry_id", entry.ID, "amount", entry.Amount.String())
	return &entry, nil
}

func (uc *LedgerUseCase) Entries() []domain.LedgerEntry {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return append([]domain.LedgerEntry(nil), uc.entries...)
}

func (uc *LedgerUseCase) Export(ctx context.Context) ([]byte, error) {
	mappings, err := uc.mappings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger mappings: %w", err)
	}
	raw, err := uc.exporter.ExportLedger(uc.Entries(), mappings)
	if err != nil {
		return nil, fmt.Errorf("export ledger: %w", err)
	}
	return raw, nil
}

func (uc *LedgerUseCase) Mappings(ctx context.Context) ([]domain.LedgerMapping, error) {
	return uc.mappings.Load(ctx)
}

func (uc *LedgerUseCase) SaveMappings(ctx context.Context, mappings []domain.LedgerMapping) ([]domain.LedgerMapping, error) {
	if len(mappings) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "save mappings", errors.New("at least one mapping is required"))
	}
	if err := uc.mappings.Save(ctx, mappings); err != nil {
		return nil, err
	}
	return uc.mappings.Load(ctx)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, domain.WrapError(domain.ErrInvalidInput, "parse amount", err)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, domain.WrapError(domain.ErrInvalidInput, "parse amount", fmt.Errorf("amount must be positive, got %s", raw))
	}
	return amount, nil
}
