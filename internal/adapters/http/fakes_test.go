package httpadapter

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/document-ledger/internal/config"
	"github.com/kirillkom/document-ledger/internal/core/domain"
)

// servicesFake implements every inbound port; err, when set, fails each call.
type servicesFake struct {
	err       error
	uploadErr map[string]error
	uploads   []string
	sources   []domain.DocumentSource
	lastPost  domain.PostOptions
	lastIDs   []string
	notice    *domain.Notice
	cleared   bool
	mappings  []domain.LedgerMapping
}

func (f *servicesFake) Upload(_ context.Context, filename, _ string, source domain.DocumentSource, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := f.uploadErr[filename]; err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.uploads = append(f.uploads, filename+":"+string(raw))
	f.sources = append(f.sources, source)
	return &domain.Document{ID: filename + "-hash", Name: filename, Status: domain.StatusUploaded, Size: int64(len(raw))}, nil
}

func (f *servicesFake) Remove(context.Context, string) error { return f.err }

func (f *servicesFake) Get(id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: id, Name: "a.csv", Status: domain.StatusValidated}, nil
}

func (f *servicesFake) List() []*domain.Document {
	return []*domain.Document{
		{ID: "a", Status: domain.StatusValidated},
		{ID: "b", Status: domain.StatusError},
	}
}

func (f *servicesFake) Retry(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: id, Status: domain.StatusUploaded}, nil
}

func (f *servicesFake) SubmitPassword(_ context.Context, id, _ string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: id, Status: domain.StatusUnlocking}, nil
}

func (f *servicesFake) BatchUnlock(context.Context, string) ([]domain.BatchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.BatchResult{{DocumentID: "a", Started: true}}, nil
}

func (f *servicesFake) ReprocessFailed(_ context.Context, ids []string) ([]domain.BatchResult, error) {
	f.lastIDs = ids
	return nil, f.err
}

func (f *servicesFake) Post(_ context.Context, id string, opts domain.PostOptions) (*domain.LedgerEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastPost = opts
	return &domain.LedgerEntry{ID: "entry-1", SourceDocumentID: id}, nil
}

func (f *servicesFake) Entries() []domain.LedgerEntry {
	return []domain.LedgerEntry{{ID: "entry-1"}}
}

func (f *servicesFake) Export(context.Context) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("PK-xlsx"), nil
}

func (f *servicesFake) Mappings(context.Context) ([]domain.LedgerMapping, error) {
	return domain.DefaultLedgerMappings(), f.err
}

func (f *servicesFake) SaveMappings(_ context.Context, mappings []domain.LedgerMapping) ([]domain.LedgerMapping, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mappings = mappings
	return mappings, nil
}

func (f *servicesFake) Bundle(_ context.Context, ids []string) (*domain.GeneratedFile, []byte, domain.BundleManifest, error) {
	if f.err != nil {
		return nil, nil, nil, f.err
	}
	f.lastIDs = ids
	return &domain.GeneratedFile{FileName: "Evidence_Bundle_2025-03-14.zip", FileType: "application/zip"},
		[]byte("PK-zip"),
		domain.BundleManifest{"a": {Name: "a.csv"}},
		nil
}

func (f *servicesFake) Split(_ context.Context, id string, _, _ int, newName string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: newName + "-hash", Name: newName, Source: domain.SourceSplit}, nil
}

func (f *servicesFake) SuggestFix(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: id, FixSuggestion: "check columns"}, nil
}

func (f *servicesFake) Current() (domain.Notice, bool) {
	if f.notice == nil {
		return domain.Notice{}, false
	}
	return *f.notice, true
}

func (f *servicesFake) Clear() { f.cleared = true }

func (f *servicesFake) services() Services {
	return Services{
		Ingestor:  f,
		Reader:    f,
		Reprocess: f,
		Ledger:    f,
		Bundler:   f,
		Splitter:  f,
		Advisor:   f,
		Notices:   f,
	}
}

func newTestHandler(cfg config.Config, fake *servicesFake) http.Handler {
	if cfg.APIBackpressureWait == 0 {
		cfg.APIBackpressureWait = 10 * time.Millisecond
	}
	return NewRouter(cfg, fake.services(), nil).Handler()
}
