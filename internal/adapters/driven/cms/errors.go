package cms

import (
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
)

// invalidPageCode is returned with HTTP 400 when a page past the last one is requested.
const invalidPageCode = "rest_post_invalid_page_number"

// StatusError is a non-2xx answer from the upstream API.
type StatusError struct {
	StatusCode int
	Code       string // API error code, if the body carried one
	Message    string
	RetryAfter time.Duration // Retry-After hint of a 429 answer, zero if absent
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("CMS API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("CMS API error %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match domain.ErrUpstream.
func (e *StatusError) Unwrap() error {
	return domain.ErrUpstream
}

// Retryable reports whether the status is worth retrying.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// apiError is the JSON error body of the upstream API.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
