package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")

	// Extraction outcomes. PasswordRequired and InvalidPassword are recoverable
	// by the password flow; ExtractionFailure only by retry or re-upload.
	ErrPasswordRequired   = errors.New("password required")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrExtractionFailure  = errors.New("extraction failure")
	ErrClassificationFail = errors.New("classification failure")

	ErrPostingConflict     = errors.New("posting conflict")
	ErrRangeError          = errors.New("invalid page range")
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrPipelineBusy        = errors.New("pipeline already running")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
