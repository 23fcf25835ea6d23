package services_test

import (
	"errors"
	"strings"
	"testing"

	"framed/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "generator", "extract", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"generator", "extract", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "generator", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	if services.IsRetryable(services.Wrap(services.ErrConfiguration, "generator", "seek", "bad catalog", nil)) {
		t.Fatal("configuration errors must not be retried")
	}
	if !services.IsRetryable(services.Wrap(services.ErrExternalTool, "generator", "extract", "exit 1", nil)) {
		t.Fatal("external tool errors should be retried")
	}
	if !services.IsRetryable(errors.New("untagged")) {
		t.Fatal("untagged errors should be retried")
	}
}
