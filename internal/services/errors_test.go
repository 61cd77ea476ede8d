package services_test

import (
	"errors"
	"strings"
	"testing"

	"scriber/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "extract", "segment 3", "ffmpeg exited", base)
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
	for _, fragment := range []string{"extract", "segment 3", "ffmpeg exited"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "merge", "", "no marker", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
}

func TestFailureMessageStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrFormat, "merge", "segment 2", "malformed cue", nil)
	msg := services.FailureMessage(err)
	if strings.HasPrefix(msg, services.ErrFormat.Error()) {
		t.Fatalf("expected marker prefix stripped, got %q", msg)
	}
	if !strings.Contains(msg, "malformed cue") {
		t.Fatalf("expected detail preserved, got %q", msg)
	}
	if services.FailureMessage(nil) != "" {
		t.Fatal("expected empty message for nil error")
	}
}
