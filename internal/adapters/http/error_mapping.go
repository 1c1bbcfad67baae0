package httpadapter

import (
	"net/http"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrRangeError):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrPostingConflict),
		domain.IsKind(err, domain.ErrIllegalTransition),
		domain.IsKind(err, domain.ErrPipelineBusy):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrExtractionFailure):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrResourceUnavailable):
		return http.StatusGone
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
