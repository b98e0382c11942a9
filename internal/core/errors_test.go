package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := (&DomainError{
		Category: ErrCatValidation,
		Code:     "CODE",
		Message:  "message",
	}).WithCause(cause)

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be unwrapped")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match cause")
	}

	match := &DomainError{Category: ErrCatValidation, Code: "CODE"}
	if !errors.Is(err, match) {
		t.Fatalf("expected errors.Is to match category and code")
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := &DomainError{Category: ErrCatTransport, Code: "X", Message: "msg"}
	err.WithDetail("k", "v")
	if err.Details == nil || err.Details["k"] != "v" {
		t.Fatalf("expected details to be set")
	}
}

func TestErrorFactories(t *testing.T) {
	if ErrConfig("C", "m").Retryable {
		t.Fatalf("config should not be retryable")
	}
	if ErrValidation("C", "m").Retryable {
		t.Fatalf("validation should not be retryable")
	}
	if ErrExtraction("m", "raw").Retryable {
		t.Fatalf("extraction should not be retryable")
	}
	if !ErrTransport("m").Retryable {
		t.Fatalf("transport should be retryable")
	}
	if !ErrTimeout("m").Retryable {
		t.Fatalf("timeout should be retryable")
	}
	if ErrPersistence("C", "m").Retryable {
		t.Fatalf("persistence should not be retryable")
	}
}

func TestRawResponse(t *testing.T) {
	err := fmt.Errorf("run failed: %w", ErrExtraction("empty", "   "))
	raw, ok := RawResponse(err)
	if !ok {
		t.Fatalf("expected raw response on wrapped extraction error")
	}
	if raw != "   " {
		t.Fatalf("raw = %q, want three spaces", raw)
	}

	if _, ok := RawResponse(ErrTransport("x")); ok {
		t.Fatalf("transport error should not carry a raw response")
	}
}

func TestClassifyTransport(t *testing.T) {
	if ClassifyTransport("anthropic", nil) != nil {
		t.Fatalf("nil error should stay nil")
	}

	timeout := ClassifyTransport("anthropic", fmt.Errorf("post: %w", context.DeadlineExceeded))
	if !IsCategory(timeout, ErrCatTimeout) {
		t.Fatalf("expected timeout category, got %s", GetCategory(timeout))
	}

	generic := ClassifyTransport("gemini", errors.New("connection reset"))
	if !IsCategory(generic, ErrCatTransport) {
		t.Fatalf("expected transport category, got %s", GetCategory(generic))
	}

	cfg := ErrConfig(CodeMissingAPIKey, "no key")
	if got := ClassifyTransport("gemini", cfg); got != error(cfg) {
		t.Fatalf("domain errors should pass through unchanged")
	}
}

func TestGetCategory(t *testing.T) {
	if GetCategory(ErrTransport("m")) != ErrCatTransport {
		t.Fatalf("expected transport category")
	}
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Fatalf("expected internal category for non-domain error")
	}
	if !IsCategory(ErrConfig(CodeMissingAPIKey, "m"), ErrCatConfig) {
		t.Fatalf("expected category match")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("expected non-domain error to be non-retryable")
	}
}
