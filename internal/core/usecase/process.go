package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/document-ledger/internal/core/domain"
	"github.com/kirillkom/document-ledger/internal/core/ports"
	"github.com/kirillkom/document-ledger/internal/core/registry"
)

const (
	passwordRequiredReason = "This PDF is password-protected."
	invalidPasswordReason  = "The provided password was incorrect."
	missingBytesReason     = "original file is not available in this session"
)

type PipelineOptions struct {
	MinContentLength int
	ExcerptChars     int
	Timeout          time.Duration
	ClassifyTimeout  time.Duration
	Observer         ports.PipelineObserver
	Notice           *SessionNotice
}

// ProcessDocumentUseCase runs extract, classify and validate for one document
// at a time per id. Runs for different documents proceed independently.
type ProcessDocumentUseCase struct {
	registry   *registry.Registry
	cache      ports.ByteCache
	extractor  ports.TextExtractor
	classifier ports.DocumentClassifier
	observer   ports.PipelineObserver
	notice     *SessionNotice

	minContentLength int
	excerptChars     int
	timeout          time.Duration
	classifyTimeout  time.Duration

	wg sync.WaitGroup
}

func NewProcessDocumentUseCase(
	reg *registry.Registry,
	cache ports.ByteCache,
	extractor ports.TextExtractor,
	classifier ports.DocumentClassifier,
	opts PipelineOptions,
) *ProcessDocumentUseCase {
	if opts.MinContentLength <= 0 {
		opts.MinContentLength = DefaultMinContentLength
	}
	if opts.ExcerptChars <= 0 {
		opts.ExcerptChars = 500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.ClassifyTimeout <= 0 {
		opts.ClassifyTimeout = opts.Timeout
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.Notice == nil {
		opts.Notice = NewSessionNotice(reg.Now)
	}
	return &ProcessDocumentUseCase{
		registry:         reg,
		cache:            cache,
		extractor:        extractor,
		classifier:       classifier,
		observer:         opts.Observer,
		notice:           opts.Notice,
		minContentLength: opts.MinContentLength,
		excerptChars:     opts.ExcerptChars,
		timeout:          opts.Timeout,
		classifyTimeout:  opts.ClassifyTimeout,
	}
}

// Start runs the pipeline in the background. The run outlives ctx cancellation.
func (uc *ProcessDocumentUseCase) Start(ctx context.Context, documentID, password string) {
	uc.spawn(ctx, documentID, func(runCtx context.Context) error {
		return uc.Run(runCtx, documentID, password)
	})
}

// StartClaimed is Start for a caller that already holds the in-flight marker
// for documentID. The run takes over the claim and releases it when it settles.
func (uc *ProcessDocumentUseCase) StartClaimed(ctx context.Context, documentID, password string) {
	uc.spawn(ctx, documentID, func(runCtx context.Context) error {
		return uc.run(runCtx, documentID, password)
	})
}

func (uc *ProcessDocumentUseCase) spawn(ctx context.Context, documentID string, fn func(context.Context) error) {
	runCtx := context.WithoutCancel(ctx)
	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		if err := fn(runCtx); err != nil {
			slog.Error("pipeline_run_failed", "document_id", documentID, "error", err)
		}
	}()
}

// Wait blocks until every started run has finished.
func (uc *ProcessDocumentUseCase) Wait() {
	uc.wg.Wait()
}

// Run executes one pipeline pass. Extraction and validation outcomes are
// recorded on the document; the returned error covers only bookkeeping failures
// such as a busy run marker or a record removed mid-run.
func (uc *ProcessDocumentUseCase) Run(ctx context.Context, documentID, password string) error {
	if !uc.registry.TryBeginRun(documentID) {
		return domain.WrapError(domain.ErrPipelineBusy, "run pipeline", fmt.Errorf("id=%s", documentID))
	}
	return uc.run(ctx, documentID, password)
}

// run expects the in-flight marker to be held. The final status goes through
// registry.Settle, which releases the marker; any earlier exit releases it here.
func (uc *ProcessDocumentUseCase) run(ctx context.Context, documentID, password string) error {
	pass := &runPass{registry: uc.registry, id: documentID}
	defer pass.release()

	doc, err := uc.registry.Get(documentID)
	if err != nil {
		return err
	}
	if doc.Status != domain.StatusUploaded && doc.Status != domain.StatusUnlocking {
		return domain.WrapError(
			domain.ErrIllegalTransition,
			"run pipeline",
			fmt.Errorf("document %s is %s", documentID, doc.Status),
		)
	}

	started := time.Now()
	uc.observer.StartRun()
	outcome := domain.StatusError
	defer func() {
		uc.observer.FinishRun(outcome, time.Since(started))
	}()

	if _, err := uc.registry.Transition(ctx, documentID, domain.StatusExtractingText, "Extracting content...", clearException); err != nil {
		return err
	}

	file, ok := uc.cache.Get(documentID)
	if !ok {
		return uc.fail(ctx, pass, errors.New(missingBytesReason))
	}

	extractCtx, cancelExtract := context.WithTimeout(ctx, uc.timeout)
	content, err := uc.extractor.Extract(extractCtx, file, password)
	cancelExtract()
	if err != nil {
		outcome, err = uc.recordExtractionFailure(ctx, pass, doc, password, err)
		return err
	}

	if _, err := uc.registry.Update(ctx, documentID, func(d *domain.Document) error {
		d.Content = content
		d.Logs = append(d.Logs, uc.logEntry("Content extracted successfully."))
		return nil
	}); err != nil {
		return err
	}
	if _, err := uc.registry.Transition(ctx, documentID, domain.StatusClassifying, "Classifying document...", nil); err != nil {
		return err
	}

	classifyCtx, cancelClassify := context.WithTimeout(ctx, uc.classifyTimeout)
	docType, err := uc.classifier.Classify(classifyCtx, doc.Name, excerpt(content, uc.excerptChars))
	cancelClassify()
	if err != nil || !docType.Valid() {
		slog.Warn("classification_degraded", "document_id", documentID, "type", docType, "error", err)
		docType = domain.TypeOther
	}

	if _, err := uc.registry.Update(ctx, documentID, func(d *domain.Document) error {
		d.Type = docType
		d.Logs = append(d.Logs, uc.logEntry(fmt.Sprintf("Classification complete: %s", docType)))
		return nil
	}); err != nil {
		return err
	}
	if _, err := uc.registry.Transition(ctx, documentID, domain.StatusValidating, "Validating data...", nil); err != nil {
		return err
	}

	status, reason := Validate(content, uc.minContentLength)
	message := "Validation successful."
	if status == domain.StatusReviewRequired {
		message = "Validation flagged for review: Low content."
	}
	if err := pass.settle(ctx, status, message, reason); err != nil {
		return err
	}

	outcome = status
	slog.Info("pipeline_completed", "document_id", documentID, "status", status, "type", docType)
	return nil
}

// runPass tracks whether the in-flight marker of one run was handed back.
type runPass struct {
	registry *registry.Registry
	id       string
	settled  bool
}

func (p *runPass) settle(ctx context.Context, to domain.DocumentStatus, message, reason string) error {
	p.settled = true
	_, err := p.registry.Settle(ctx, p.id, to, message, func(d *domain.Document) {
		d.ExceptionReason = reason
	})
	return err
}

func (p *runPass) release() {
	if !p.settled {
		p.registry.EndRun(p.id)
	}
}

func (uc *ProcessDocumentUseCase) recordExtractionFailure(
	ctx context.Context,
	pass *runPass,
	doc *domain.Document,
	password string,
	cause error,
) (domain.DocumentStatus, error) {
	switch {
	case domain.IsKind(cause, domain.ErrPasswordRequired) && password == "":
		return domain.StatusAwaitingPassword, pass.settle(ctx, domain.StatusAwaitingPassword, passwordRequiredReason, passwordRequiredReason)
	case domain.IsKind(cause, domain.ErrInvalidPassword), domain.IsKind(cause, domain.ErrPasswordRequired):
		uc.notice.Raise(fmt.Sprintf("Incorrect password for %s.", doc.Name))
		return domain.StatusInvalidPassword, pass.settle(ctx, domain.StatusInvalidPassword, invalidPasswordReason, invalidPasswordReason)
	default:
		return domain.StatusError, uc.fail(ctx, pass, cause)
	}
}

func (uc *ProcessDocumentUseCase) fail(ctx context.Context, pass *runPass, cause error) error {
	reason := fmt.Sprintf("Processing failed: %s", cause.Error())
	slog.Warn("pipeline_failed", "document_id", pass.id, "error", cause)
	return pass.settle(ctx, domain.StatusError, reason, reason)
}

func (uc *ProcessDocumentUseCase) logEntry(message string) domain.LogEntry {
	return domain.LogEntry{Timestamp: uc.registry.Now(), Message: message}
}

func clearException(d *domain.Document) {
	d.ExceptionReason = ""
}

func excerpt(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit])
}

type noopObserver struct{}

func (noopObserver) StartRun()                                      {}
func (noopObserver) FinishRun(domain.DocumentStatus, time.Duration) {}
