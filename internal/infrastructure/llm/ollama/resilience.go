package ollama

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/kirillkom/document-ledger/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx answer from the Ollama API.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, e.Body)
}

func classifyOllamaError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, func(err error) resilience.ErrorClassification {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) {
			if retryableStatus(statusErr.StatusCode) {
				return resilience.Transient
			}
			// A model rejecting the request says nothing about availability.
			return resilience.Ignored
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			return resilience.Transient
		}
		return resilience.Permanent
	})
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
