package ports

import (
	"context"
	"time"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

// TextExtractor turns raw file bytes into plain text. An empty password means
// none was supplied.
type TextExtractor interface {
	Extract(ctx context.Context, file domain.SourceFile, password string) (string, error)
}

// DocumentClassifier infers a document type from a name and content excerpt.
type DocumentClassifier interface {
	Classify(ctx context.Context, name, excerpt string) (domain.DocumentType, error)
}

// FixSuggester drafts advisory remediation text for a problem document.
type FixSuggester interface {
	SuggestFix(ctx context.Context, doc *domain.Document) (string, error)
}

// PersistenceAdapter stores whole collections; every save rewrites everything.
type PersistenceAdapter interface {
	LoadDocuments(ctx context.Context) ([]domain.DocumentMetadata, error)
	SaveDocuments(ctx context.Context, docs []domain.DocumentMetadata) error
	LoadLedger(ctx context.Context) ([]domain.LedgerEntry, error)
	SaveLedger(ctx context.Context, entries []domain.LedgerEntry) error
}

// ByteCache holds raw uploads for the current session only.
type ByteCache interface {
	Put(id string, file domain.SourceFile)
	Get(id string) (domain.SourceFile, bool)
	Delete(id string)
}

// EventPublisher announces document status changes.
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event domain.StatusEvent) error
}

// MappingStore reads and writes the account to ledger code table.
type MappingStore interface {
	Load(ctx context.Context) ([]domain.LedgerMapping, error)
	Save(ctx context.Context, mappings []domain.LedgerMapping) error
}

// PageSplitter renders page ranges of a PDF into a new PDF.
type PageSplitter interface {
	PageCount(data []byte) (int, error)
	ExtractPages(data []byte, fromPage, toPage int) ([]byte, error)
}

// LedgerExporter renders ledger entries into a downloadable workbook.
type LedgerExporter interface {
	ExportLedger(entries []domain.LedgerEntry, mappings []domain.LedgerMapping) ([]byte, error)
}

// PipelineObserver receives pipeline run measurements.
type PipelineObserver interface {
	StartRun()
	FinishRun(outcome domain.DocumentStatus, duration time.Duration)
}
