package notion

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies an API failure into the categories callers can
// meaningfully branch on. The mapping from HTTP status codes is fixed:
// 400 -> KindValidation, 401/403 -> KindAuth, 404 -> KindNotFound,
// 429 -> KindRateLimit, any other non-2xx -> KindUnknown. Failures that
// never produced a response (connection refused, timeout) are KindTransport.
type ErrorKind string

const (
	// KindTransport covers connection and timeout failures where no HTTP
	// response was received.
	KindTransport ErrorKind = "transport"

	// KindAuth covers 401 and 403: the token is invalid, expired, or not
	// granted access to the resource.
	KindAuth ErrorKind = "auth"

	// KindNotFound covers 404. The API does not distinguish "the ID does
	// not exist" from "the ID exists but is not shared with this
	// integration"; both surface as this kind.
	KindNotFound ErrorKind = "not_found"

	// KindRateLimit covers 429 responses.
	KindRateLimit ErrorKind = "rate_limit"

	// KindValidation covers 400: malformed request parameters, including
	// cursors reused against a different query.
	KindValidation ErrorKind = "validation"

	// KindUnknown covers any other non-2xx response.
	KindUnknown ErrorKind = "unknown"
)

// Error is the typed error raised by the client for any failed API call.
// The traversal layers above propagate it unmodified, so a caller of
// FetchTree or InferRoots can inspect the original failure with errors.As.
type Error struct {
	Kind       ErrorKind
	StatusCode int // zero for transport errors

	// Code and Message come from the API error body when one was present.
	Code    string
	Message string

	// RetryAfter is the server-requested delay from a 429 response, zero
	// when the header was absent or unparsable.
	RetryAfter time.Duration

	// Err is the underlying transport error, nil for HTTP-level failures.
	Err error
}

func (e *Error) Error() string {
	if e.Kind == KindTransport {
		return fmt.Sprintf("notion: transport error: %v", e.Err)
	}
	if e.Code != "" {
		return fmt.Sprintf("notion: %s (status %d, code %q): %s", e.Kind, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("notion: %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// retryable reports whether a request that produced this error may be
// safely reissued. Used by the optional backoff policy; the core client
// never retries on its own.
func (e *Error) retryable() bool {
	return e.Kind == KindRateLimit || e.Kind == KindTransport ||
		(e.Kind == KindUnknown && e.StatusCode >= 500)
}

func kindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool { return kindOf(err) == KindNotFound }

// IsAuth reports whether err is a 401 or 403 from the API.
func IsAuth(err error) bool { return kindOf(err) == KindAuth }

// IsRateLimited reports whether err is a 429 from the API.
func IsRateLimited(err error) bool { return kindOf(err) == KindRateLimit }

// IsValidation reports whether err is a 400 from the API.
func IsValidation(err error) bool { return kindOf(err) == KindValidation }

// IsTransport reports whether err is a connection-level failure with no
// HTTP response.
func IsTransport(err error) bool { return kindOf(err) == KindTransport }
