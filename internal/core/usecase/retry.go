package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/core/ports"
	"github.com/kirillkom/document-ledger/internal/core/registry"
)

const retryUnavailableNotice = "Cannot retry: The original file is not available in this session. Please re-upload the document to process it again."

// claimedStarter starts a run for a document whose in-flight marker the
// caller already holds.
type claimedStarter interface {
	StartClaimed(ctx context.Context, documentID, password string)
}

// ReprocessUseCase restarts pipelines for failed and locked documents.
type ReprocessUseCase struct {
	registry    *registry.Registry
	cache       ports.ByteCache
	pipeline    claimedStarter
	notice      *SessionNotice
	concurrency int
}

func NewReprocessUseCase(
	reg *registry.Registry,
	cache ports.ByteCache,
	pipeline claimedStarter,
	notice *SessionNotice,
	concurrency int,
) *ReprocessUseCase {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &ReprocessUseCase{
		registry:    reg,
		cache:       cache,
		pipeline:    pipeline,
		notice:      notice,
		concurrency: concurrency,
	}
}

// Retry sends an Error document back through the pipeline. Without resident
// bytes the status is left alone and a session notice is raised.
func (uc *ReprocessUseCase) Retry(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.registry.Get(documentID)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTransition(doc.Status, domain.StatusUploaded); err != nil {
		return nil, err
	}
	if _, ok := uc.cache.Get(documentID); !ok {
		uc.notice.Raise(retryUnavailableNotice)
		return nil, domain.WrapError(domain.ErrResourceUnavailable, "retry document", fmt.Errorf("bytes for %s are not resident", documentID))
	}

	if !uc.registry.TryBeginRun(documentID) {
		return nil, domain.WrapError(domain.ErrPipelineBusy, "retry document", fmt.Errorf("id=%s", documentID))
	}
	updated, err := uc.registry.Transition(ctx, documentID, domain.StatusUploaded, "Retrying processing...", func(d *domain.Document) {
		d.ExceptionReason = ""
		d.Content = ""
	})
	if err != nil {
		uc.registry.EndRun(documentID)
		return nil, err
	}
	uc.pipeline.StartClaimed(ctx, documentID, "")
	return updated, nil
}

// SubmitPassword moves a locked document to Unlocking and reruns extraction with password.
func (uc *ReprocessUseCase) SubmitPassword(ctx context.Context, documentID, password string) (*domain.Document, error) {
	if strings.TrimSpace(password) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit password", errors.New("password is required"))
	}
	doc, err := uc.registry.Get(documentID)
	if err != nil {
		return nil, err
	}
	if !doc.Status.IsLocked() {
		return nil, domain.WrapError(domain.ErrIllegalTransition, "submit password", fmt.Errorf("document %s is %s", documentID, doc.Status))
	}
	if _, ok := uc.cache.Get(documentID); !ok {
		uc.notice.Raise(retryUnavailableNotice)
		return nil, domain.WrapError(domain.ErrResourceUnavailable, "submit password", fmt.Errorf("bytes for %s are not resident", documentID))
	}

	if !uc.registry.TryBeginRun(documentID) {
		return nil, domain.WrapError(domain.ErrPipelineBusy, "submit password", fmt.Errorf("id=%s", documentID))
	}
	updated, err := uc.registry.Transition(ctx, documentID, domain.StatusUnlocking, "Attempting to unlock with password...", func(d *domain.Document) {
		d.ExceptionReason = ""
	})
	if err != nil {
		uc.registry.EndRun(documentID)
		return nil, err
	}
	uc.pipeline.StartClaimed(ctx, documentID, password)
	return updated, nil
}

// BatchUnlock submits password to every locked document. One failure never
// affects the others.
func (uc *ReprocessUseCase) BatchUnlock(ctx context.Context, password string) ([]domain.BatchResult, error) {
	if strings.TrimSpace(password) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "batch unlock", errors.New("password is required"))
	}
	locked := uc.registry.FindByStatus(domain.StatusAwaitingPassword, domain.StatusInvalidPassword)
	ids := make([]string, 0, len(locked))
	for _, doc := range locked {
		ids = append(ids, doc.ID)
	}
	results := uc.fanOut(ids, func(id string) error {
		_, err := uc.SubmitPassword(ctx, id, password)
		return err
	})
	slog.Info("batch_unlock_completed", "documents", len(results))
	return results, nil
}

// ReprocessFailed retries the given ids that are in Error, or every Error
// document when ids is empty.
func (uc *ReprocessUseCase) ReprocessFailed(ctx context.Context, ids []string) ([]domain.BatchResult, error) {
	failed := uc.registry.FindByStatus(domain.StatusError)
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	targets := make([]string, 0, len(failed))
	for _, doc := range failed {
		if len(wanted) == 0 || wanted[doc.ID] {
			targets = append(targets, doc.ID)
		}
	}
	results := uc.fanOut(targets, func(id string) error {
		_, err := uc.Retry(ctx, id)
		return err
	})
	slog.Info("reprocess_failed_completed", "documents", len(results))
	return results, nil
}

func (uc *ReprocessUseCase) fanOut(ids []string, task func(id string) error) []domain.BatchResult {
	results := make([]domain.BatchResult, len(ids))
	var g errgroup.Group
	g.SetLimit(uc.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			result := domain.BatchResult{DocumentID: id, Started: true}
			if err := task(id); err != nil {
				result.Started = false
				result.Error = err.Error()
				slog.Warn("batch_task_failed", "document_id", id, "error", err)
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()
	return results
}
