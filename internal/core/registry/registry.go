// Package registry holds the authoritative in-memory set of documents.
//
// Every command runs under one mutex, bumps the record version, then rewrites
// the content-free collection through the persistence adapter. Status changes
// are published as events after the lock is released.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/core/ports"
)

type Registry struct {
	mu      sync.Mutex
	docs    map[string]*domain.Document
	order   []string
	running map[string]struct{}

	saveMu      sync.Mutex
	persistence ports.PersistenceAdapter
	events      ports.EventPublisher
	now         func() time.Time
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// New builds an empty registry. persistence and events may be nil.
func New(persistence ports.PersistenceAdapter, events ports.EventPublisher, opts ...Option) *Registry {
	r := &Registry{
		docs:        make(map[string]*domain.Document),
		running:     make(map[string]struct{}),
		persistence: persistence,
		events:      events,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the registry contents with persisted metadata. Records saved
// while a pipeline owned them have no run after a restart, so they are moved
// to Error where a retry can pick them up.
func (r *Registry) Load(ctx context.Context) error {
	if r.persistence == nil {
		return nil
	}
	items, err := r.persistence.LoadDocuments(ctx)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}

	r.mu.Lock()
	r.docs = make(map[string]*domain.Document, len(items))
	r.order = r.order[:0]
	interrupted := 0
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, exists := r.docs[item.ID]; exists {
			continue
		}
		doc := item.Document()
		if doc.Status != domain.StatusPosted && !doc.Status.IsResting() {
			slog.Warn("document_run_interrupted", "document_id", doc.ID, "status", string(doc.Status))
			doc.Status = domain.StatusError
			doc.ExceptionReason = InterruptedReason
			r.appendLogLocked(doc, InterruptedReason)
			doc.Version++
			interrupted++
		}
		r.docs[item.ID] = doc
		r.order = append(r.order, item.ID)
	}
	r.mu.Unlock()

	if interrupted > 0 {
		r.persist(ctx)
	}
	return nil
}

// InterruptedReason marks records whose pipeline run did not survive a restart.
const InterruptedReason = "Processing was interrupted before it finished. Re-upload the file and retry."

// Now exposes the registry clock so callers stamp records consistently.
func (r *Registry) Now() time.Time {
	return r.now()
}

// DuplicateFunc decides how a new document is flagged when original shares its content hash.
type DuplicateFunc func(doc *domain.Document, original *domain.Document)

// Admit inserts doc unless its id is already known, in which case the stored
// record is returned with created=false. Duplicate detection runs against prior
// non-duplicate records in the same critical section as the insert.
func (r *Registry) Admit(ctx context.Context, doc *domain.Document, onDuplicate DuplicateFunc) (*domain.Document, bool, error) {
	if doc == nil || doc.ID == "" {
		return nil, false, domain.WrapError(domain.ErrInvalidInput, "admit document", errors.New("document id is required"))
	}

	r.mu.Lock()
	if existing, ok := r.docs[doc.ID]; ok {
		out := existing.Clone()
		r.mu.Unlock()
		return out, false, nil
	}

	stored := doc.Clone()
	if original := r.findOriginalLocked(stored.ContentHash, stored.ID); original != nil && onDuplicate != nil {
		onDuplicate(stored, original.Clone())
	}
	if !stored.Status.Valid() {
		r.mu.Unlock()
		return nil, false, domain.WrapError(domain.ErrInvalidInput, "admit document", fmt.Errorf("unknown status %q", stored.Status))
	}
	stored.Version = 1
	r.docs[stored.ID] = stored
	r.order = append(r.order, stored.ID)
	out := stored.Clone()
	r.mu.Unlock()

	r.persist(ctx)
	r.publish(ctx, out, "", out.Status)
	return out, true, nil
}

func (r *Registry) findOriginalLocked(hash, excludeID string) *domain.Document {
	if hash == "" {
		return nil
	}
	for _, id := range r.order {
		doc := r.docs[id]
		if id == excludeID || doc.IsDuplicate {
			continue
		}
		if doc.ContentHash == hash {
			return doc
		}
	}
	return nil
}

// Transition moves a document to status to, appending message to its log.
// mutate, when set, runs on the record before the version bump.
func (r *Registry) Transition(ctx context.Context, id string, to domain.DocumentStatus, message string, mutate func(*domain.Document)) (*domain.Document, error) {
	return r.transition(ctx, id, to, message, mutate, false)
}

// Settle is Transition for the final status of a pipeline run. The in-flight
// marker for id is released in the same critical section, so a caller that
// observes the new status can always claim the next run. The marker is
// released even when the transition fails.
func (r *Registry) Settle(ctx context.Context, id string, to domain.DocumentStatus, message string, mutate func(*domain.Document)) (*domain.Document, error) {
	return r.transition(ctx, id, to, message, mutate, true)
}

func (r *Registry) transition(
	ctx context.Context,
	id string,
	to domain.DocumentStatus,
	message string,
	mutate func(*domain.Document),
	endRun bool,
) (*domain.Document, error) {
	r.mu.Lock()
	if endRun {
		delete(r.running, id)
	}
	doc, ok := r.docs[id]
	if !ok {
		r.mu.Unlock()
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "transition document", fmt.Errorf("id=%s", id))
	}
	from := doc.Status
	if err := domain.CheckTransition(from, to); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if message == "" {
		message = fmt.Sprintf("Status changed to %s.", to)
	}
	doc.Status = to
	if mutate != nil {
		mutate(doc)
		doc.Status = to
	}
	r.appendLogLocked(doc, message)
	doc.Version++
	out := doc.Clone()
	r.mu.Unlock()

	r.persist(ctx)
	r.publish(ctx, out, from, to)
	return out, nil
}

// Update applies a non-status mutation. Changing status here is rejected.
func (r *Registry) Update(ctx context.Context, id string, mutate func(*domain.Document) error) (*domain.Document, error) {
	r.mu.Lock()
	doc, ok := r.docs[id]
	if !ok {
		r.mu.Unlock()
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "update document", fmt.Errorf("id=%s", id))
	}
	working := doc.Clone()
	if err := mutate(working); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if working.Status != doc.Status {
		r.mu.Unlock()
		return nil, domain.WrapError(domain.ErrIllegalTransition, "update document", errors.New("status must change through Transition"))
	}
	working.ID = doc.ID
	working.Version = doc.Version + 1
	r.docs[id] = working
	out := working.Clone()
	r.mu.Unlock()

	r.persist(ctx)
	return out, nil
}

// AppendLog records a timestamped message on the document.
func (r *Registry) AppendLog(ctx context.Context, id, message string) error {
	_, err := r.Update(ctx, id, func(doc *domain.Document) error {
		r.appendLogLocked(doc, message)
		return nil
	})
	return err
}

// MarkPosted moves a validated document to Posted and links entryID in one step.
// It fails with ErrPostingConflict when the document was already posted.
func (r *Registry) MarkPosted(ctx context.Context, id, entryID, message string) (*domain.Document, error) {
	r.mu.Lock()
	doc, ok := r.docs[id]
	if !ok {
		r.mu.Unlock()
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "mark posted", fmt.Errorf("id=%s", id))
	}
	if doc.Status == domain.StatusPosted || len(doc.PostedLedgerEntryIDs) > 0 {
		r.mu.Unlock()
		return nil, domain.WrapError(domain.ErrPostingConflict, "mark posted", fmt.Errorf("document %s already posted", id))
	}
	if doc.Status != domain.StatusValidated {
		r.mu.Unlock()
		return nil, domain.WrapError(domain.ErrPostingConflict, "mark posted", fmt.Errorf("document %s is %s, not %s", id, doc.Status, domain.StatusValidated))
	}
	from := doc.Status
	doc.Status = domain.StatusPosted
	doc.PostedLedgerEntryIDs = []string{entryID}
	r.appendLogLocked(doc, message)
	doc.Version++
	out := doc.Clone()
	r.mu.Unlock()

	r.persist(ctx)
	r.publish(ctx, out, from, domain.StatusPosted)
	return out, nil
}

// Remove deletes the record. Duplicates pointing at it keep their flag.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.docs[id]; !ok {
		r.mu.Unlock()
		return domain.WrapError(domain.ErrDocumentNotFound, "remove document", fmt.Errorf("id=%s", id))
	}
	delete(r.docs, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.persist(ctx)
	return nil
}

func (r *Registry) Get(id string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
	}
	return doc.Clone(), nil
}

// List returns documents in upload order.
func (r *Registry) List() []*domain.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Document, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.docs[id].Clone())
	}
	return out
}

func (r *Registry) FindByStatus(statuses ...domain.DocumentStatus) []*domain.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Document
	for _, id := range r.order {
		doc := r.docs[id]
		for _, status := range statuses {
			if doc.Status == status {
				out = append(out, doc.Clone())
				break
			}
		}
	}
	return out
}

// FindByHash returns the earliest non-duplicate document with the given hash.
func (r *Registry) FindByHash(hash string) (*domain.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := r.findOriginalLocked(hash, "")
	if doc == nil {
		return nil, false
	}
	return doc.Clone(), true
}

// TryBeginRun claims the in-flight marker for id. It returns false when a
// pipeline run, or a command about to hand its claim to one, already holds it.
func (r *Registry) TryBeginRun(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.running[id]; busy {
		return false
	}
	r.running[id] = struct{}{}
	return true
}

func (r *Registry) EndRun(id string) {
	r.mu.Lock()
	delete(r.running, id)
	r.mu.Unlock()
}

func (r *Registry) appendLogLocked(doc *domain.Document, message string) {
	doc.Logs = append(doc.Logs, domain.LogEntry{Timestamp: r.now(), Message: message})
}

// persist serialises saves so the last write always carries the newest snapshot.
func (r *Registry) persist(ctx context.Context) {
	if r.persistence == nil {
		return
	}
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.Lock()
	snapshot := make([]domain.DocumentMetadata, 0, len(r.order))
	for _, id := range r.order {
		snapshot = append(snapshot, r.docs[id].Metadata())
	}
	r.mu.Unlock()

	if err := r.persistence.SaveDocuments(context.WithoutCancel(ctx), snapshot); err != nil {
		slog.Error("registry_persist_failed", "documents", len(snapshot), "error", err.Error())
	}
}

func (r *Registry) publish(ctx context.Context, doc *domain.Document, from, to domain.DocumentStatus) {
	if r.events == nil || from == to {
		return
	}
	event := domain.StatusEvent{
		DocumentID: doc.ID,
		Name:       doc.Name,
		From:       from,
		To:         to,
		Version:    doc.Version,
		At:         r.now(),
	}
	if err := r.events.PublishStatusChanged(context.WithoutCancel(ctx), event); err != nil {
		slog.Warn("status_event_publish_failed",
			"document_id", doc.ID,
			"from", string(from),
			"to", string(to),
			"error", err.Error(),
		)
	}
}
