package filestore

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/infrastructure/storage/localfs"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	storage, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	return New(storage)
}

func TestLoadBeforeSaveIsEmpty(t *testing.T) {
	s := newStore(t)
	docs, err := s.LoadDocuments(context.Background())
	if err != nil {
		t.Fatalf("LoadDocuments() error = %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents, got %d", len(docs))
	}
	entries, err := s.LoadLedger(context.Background())
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty ledger, got %d entries err=%v", len(entries), err)
	}
}

func TestSaveDocumentsExcludesContent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	doc := &domain.Document{
		ID:      "a.csv-h",
		Name:    "a.csv",
		Content: "very long extracted text that must not be persisted",
		Status:  domain.StatusValidated,
		Logs:    []domain.LogEntry{{Timestamp: time.Unix(0, 0).UTC(), Message: "Validation successful."}},
	}
	if err := s.SaveDocuments(ctx, []domain.DocumentMetadata{doc.Metadata()}); err != nil {
		t.Fatalf("SaveDocuments() error = %v", err)
	}

	rc, err := s.storage.Open(ctx, documentsKey)
	if err != nil {
		t.Fatalf("open raw blob: %v", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read raw blob: %v", err)
	}
	if strings.Contains(string(raw), "must not be persisted") {
		t.Fatalf("content leaked into persisted metadata: %s", raw)
	}

	docs, err := s.LoadDocuments(ctx)
	if err != nil {
		t.Fatalf("LoadDocuments() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Status != domain.StatusValidated || len(docs[0].Logs) != 1 {
		t.Fatalf("unexpected round trip: %+v", docs)
	}
}

func TestSaveLedgerKeepsDecimalAmounts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	entries := []domain.LedgerEntry{{
		ID:               "e-1",
		Date:             "2025-03-01",
		Narration:        "Posted from a.csv",
		DebitAccount:     "1200",
		CreditAccount:    "4000",
		Amount:           decimal.RequireFromString("1234.56"),
		SourceDocumentID: "a.csv-h",
	}}
	if err := s.SaveLedger(ctx, entries); err != nil {
		t.Fatalf("SaveLedger() error = %v", err)
	}
	got, err := s.LoadLedger(ctx)
	if err != nil {
		t.Fatalf("LoadLedger() error = %v", err)
	}
	if len(got) != 1 || !got[0].Amount.Equal(decimal.RequireFromString("1234.56")) {
		t.Fatalf("unexpected ledger: %+v", got)
	}
}
