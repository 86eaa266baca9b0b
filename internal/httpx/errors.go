package httpx

import (
	"errors"
	"fmt"
	"strings"
)

// StatusError is returned for non-2xx responses so retry predicates can
// inspect the status code.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// rejectError marks a response that must not be retried (wrong content
// type, over the size cap).
type rejectError struct {
	reason string
}

func (e *rejectError) Error() string {
	return e.reason
}

// IsRetriableStatus reports whether a status code is worth another attempt.
func IsRetriableStatus(code int) bool {
	switch code {
	case 408, 425, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// IsRetriableError classifies an error as transient: retriable statuses,
// timeouts and connection-level failures.
func IsRetriableError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return IsRetriableStatus(statusErr.Code)
	}

	var reject *rejectError
	if errors.As(err, &reject) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range []string{"timeout", "timed out", "deadline", "network", "econn", "socket", "reset", "refused", "abort", "broken pipe", "eof"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
