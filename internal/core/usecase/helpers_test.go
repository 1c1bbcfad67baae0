package usecase

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/core/ports"
	"github.com/kirillkom/document-ledger/internal/core/registry"
	"github.com/kirillkom/document-ledger/internal/infrastructure/hashing"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type persistenceFake struct {
	mu      sync.Mutex
	docs    []domain.DocumentMetadata
	ledger  []domain.LedgerEntry
	saves   int
	saveErr error
}

func (f *persistenceFake) LoadDocuments(context.Context) ([]domain.DocumentMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs, nil
}

func (f *persistenceFake) SaveDocuments(_ context.Context, docs []domain.DocumentMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = docs
	return nil
}

func (f *persistenceFake) LoadLedger(context.Context) ([]domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ledger, nil
}

func (f *persistenceFake) SaveLedger(_ context.Context, entries []domain.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.ledger = entries
	return nil
}

func (f *persistenceFake) savedLedger() []domain.LedgerEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.LedgerEntry(nil), f.ledger...)
}

type eventsFake struct {
	mu     sync.Mutex
	events []domain.StatusEvent
}

func (f *eventsFake) PublishStatusChanged(_ context.Context, event domain.StatusEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

// path lists the statuses a document moved through, in order.
func (f *eventsFake) path(documentID string) []domain.DocumentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DocumentStatus
	for _, e := range f.events {
		if e.DocumentID == documentID {
			out = append(out, e.To)
		}
	}
	return out
}

type cacheFake struct {
	mu    sync.Mutex
	files map[string]domain.SourceFile
}

func newCacheFake() *cacheFake {
	return &cacheFake{files: map[string]domain.SourceFile{}}
}

func (f *cacheFake) Put(id string, file domain.SourceFile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[id] = file
}

func (f *cacheFake) Get(id string) (domain.SourceFile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	return file, ok
}

func (f *cacheFake) Delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, id)
}

type extractorFunc func(file domain.SourceFile, password string) (string, error)

func (f extractorFunc) Extract(_ context.Context, file domain.SourceFile, password string) (string, error) {
	return f(file, password)
}

func staticExtractor(text string) ports.TextExtractor {
	return extractorFunc(func(domain.SourceFile, string) (string, error) { return text, nil })
}

type classifierFake struct {
	docType domain.DocumentType
	err     error
}

func (f *classifierFake) Classify(context.Context, string, string) (domain.DocumentType, error) {
	if f.err != nil {
		return domain.TypeOther, f.err
	}
	return f.docType, nil
}

type starterFake struct {
	mu    sync.Mutex
	calls []string
}

func (f *starterFake) Start(_ context.Context, documentID, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, documentID)
}

func (f *starterFake) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type harness struct {
	reg      *registry.Registry
	store    *persistenceFake
	events   *eventsFake
	cache    *cacheFake
	notice   *SessionNotice
	pipeline *ProcessDocumentUseCase
	ingest   *IngestDocumentUseCase
	retry    *ReprocessUseCase
}

func newHarness(t *testing.T, extractor ports.TextExtractor, classifier ports.DocumentClassifier) *harness {
	t.Helper()
	return newHarnessWithStore(t, extractor, classifier, &persistenceFake{}, nil)
}

// newHarnessWithStore wires a harness over store. When publisher is nil the
// recorded events fake receives status events directly.
func newHarnessWithStore(
	t *testing.T,
	extractor ports.TextExtractor,
	classifier ports.DocumentClassifier,
	store *persistenceFake,
	publisher ports.EventPublisher,
) *harness {
	t.Helper()
	h := &harness{
		store:  store,
		events: &eventsFake{},
		cache:  newCacheFake(),
	}
	if publisher == nil {
		publisher = h.events
	}
	h.reg = registry.New(h.store, publisher, registry.WithClock(func() time.Time { return testNow }))
	h.notice = NewSessionNotice(h.reg.Now)
	h.pipeline = NewProcessDocumentUseCase(h.reg, h.cache, extractor, classifier, PipelineOptions{
		MinContentLength: 50,
		ExcerptChars:     500,
		Timeout:          5 * time.Second,
		Notice:           h.notice,
	})
	h.ingest = NewIngestDocumentUseCase(h.reg, h.cache, hashing.Hasher{}, h.pipeline, nil, 0)
	h.retry = NewReprocessUseCase(h.reg, h.cache, h.pipeline, h.notice, 4)
	t.Cleanup(h.pipeline.Wait)
	return h
}

// upload admits a file and waits for its pipeline to come to rest.
func (h *harness) upload(t *testing.T, name string, data []byte) *domain.Document {
	t.Helper()
	doc, err := h.ingest.Upload(context.Background(), name, "", domain.SourceUpload, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Upload(%s) error = %v", name, err)
	}
	h.pipeline.Wait()
	return h.get(t, doc.ID)
}

func (h *harness) get(t *testing.T, id string) *domain.Document {
	t.Helper()
	doc, err := h.reg.Get(id)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", id, err)
	}
	return doc
}

func longText(prefix string) string {
	return prefix + " ledger content with enough characters to pass the validation threshold"
}

func statusesEqual(got, want []domain.DocumentStatus) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
