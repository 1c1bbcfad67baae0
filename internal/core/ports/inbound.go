package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

// DocumentIngestor is the inbound contract for uploads and removals.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, source domain.DocumentSource, body io.Reader) (*domain.Document, error)
	Remove(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document state.
type DocumentReader interface {
	Get(id string) (*domain.Document, error)
	List() []*domain.Document
}

// ReprocessCoordinator restarts pipelines for failed or locked documents.
type ReprocessCoordinator interface {
	Retry(ctx context.Context, documentID string) (*domain.Document, error)
	SubmitPassword(ctx context.Context, documentID, password string) (*domain.Document, error)
	BatchUnlock(ctx context.Context, password string) ([]domain.BatchResult, error)
	ReprocessFailed(ctx context.Context, ids []string) ([]domain.BatchResult, error)
}

// LedgerService posts documents and exposes the ledger and its mappings.
type LedgerService interface {
	Post(ctx context.Context, documentID string, opts domain.PostOptions) (*domain.LedgerEntry, error)
	Entries() []domain.LedgerEntry
	Export(ctx context.Context) ([]byte, error)
	Mappings(ctx context.Context) ([]domain.LedgerMapping, error)
	SaveMappings(ctx context.Context, mappings []domain.LedgerMapping) ([]domain.LedgerMapping, error)
}

// EvidenceBundler packages documents for audit.
type EvidenceBundler interface {
	Bundle(ctx context.Context, ids []string) (*domain.GeneratedFile, []byte, domain.BundleManifest, error)
}

// DocumentSplitter carves a page range out of a PDF document.
type DocumentSplitter interface {
	Split(ctx context.Context, documentID string, fromPage, toPage int, newName string) (*domain.Document, error)
}

// FixAdvisor drafts remediation advice for problem documents.
type FixAdvisor interface {
	SuggestFix(ctx context.Context, documentID string) (*domain.Document, error)
}

// NoticeBoard exposes the session-wide error notice.
type NoticeBoard interface {
	Current() (domain.Notice, bool)
	Clear()
}
