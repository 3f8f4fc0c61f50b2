package calendar

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/api/googleapi"
)

// AuthError means the gateway credentials were rejected. Never
// recoverable by retrying; must be surfaced to operators.
type AuthError struct {
	Op      string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("calendar auth failure during %s: %s", e.Op, e.Message)
}

// APIError is any non-auth gateway failure. Transient failures (timeouts,
// rate limits, 5xx) may be retried; permanent ones may not.
type APIError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *APIError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("calendar %s failure during %s: %v", kind, e.Op, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Transient
}

// IsAuth reports whether err is a credential failure.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// classify maps a raw Google API error onto the gateway taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 401 || gerr.Code == 403:
			return &AuthError{Op: op, Message: gerr.Message}
		case gerr.Code == 408 || gerr.Code == 429 || gerr.Code >= 500:
			return &APIError{Op: op, Transient: true, Err: err}
		default:
			return &APIError{Op: op, Transient: false, Err: err}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Op: op, Transient: true, Err: err}
	}

	return &APIError{Op: op, Transient: false, Err: err}
}
