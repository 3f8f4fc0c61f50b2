package calendar

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestClassifyAuthCodes(t *testing.T) {
	for _, code := range []int{401, 403} {
		err := classify("queryBusy", &googleapi.Error{Code: code, Message: "denied"})
		if !IsAuth(err) {
			t.Fatalf("code %d should classify as auth failure, got %v", code, err)
		}
		if IsTransient(err) {
			t.Fatalf("auth failure must never be transient")
		}
	}
}

func TestClassifyTransientCodes(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503} {
		err := classify("createEvent", &googleapi.Error{Code: code})
		if !IsTransient(err) {
			t.Fatalf("code %d should classify as transient, got %v", code, err)
		}
		if IsAuth(err) {
			t.Fatalf("code %d wrongly classified as auth", code)
		}
	}
}

func TestClassifyPermanentCodes(t *testing.T) {
	for _, code := range []int{400, 404, 409} {
		err := classify("createEvent", &googleapi.Error{Code: code})
		if IsTransient(err) || IsAuth(err) {
			t.Fatalf("code %d should be a permanent API error, got %v", code, err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("code %d should wrap into APIError", code)
		}
	}
}

func TestClassifyContextDeadline(t *testing.T) {
	err := classify("queryBusy", fmt.Errorf("rpc: %w", context.DeadlineExceeded))
	if !IsTransient(err) {
		t.Fatalf("deadline exceeded should be transient, got %v", err)
	}
}

func TestClassifyNil(t *testing.T) {
	if classify("queryBusy", nil) != nil {
		t.Fatal("nil error should stay nil")
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &APIError{Op: "createEvent", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatal("APIError should unwrap to the inner error")
	}
}
