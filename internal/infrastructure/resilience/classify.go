package resilience

import (
	"context"
	"errors"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

var (
	Transient = ErrorClassification{Retryable: true, RecordFailure: true}
	Permanent = ErrorClassification{RecordFailure: true}
	Ignored   = ErrorClassification{}
)

// Classify applies the rules every collaborator shares before deferring to
// specific: cancellation is ignored and an open breaker is transient.
func Classify(err error, specific ErrorClassifier) ErrorClassification {
	switch {
	case err == nil:
		return Ignored
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Ignored
	case IsCircuitOpen(err):
		return Transient
	case specific != nil:
		return specific(err)
	default:
		return Permanent
	}
}

// AsTemporary marks transient failures with domain.ErrTemporary so callers
// can map them to 503.
func AsTemporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifier == nil {
		classifier = failFast
	}
	if classifier(err).Retryable || IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
