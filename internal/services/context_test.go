package services_test

import (
	"context"
	"testing"

	"scriber/internal/services"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id on empty context")
	}

	ctx = services.WithJobID(ctx, "job-123")
	ctx = services.WithStage(ctx, "transcribe")
	ctx = services.WithRequestID(ctx, "req-9")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-123" {
		t.Fatalf("job id = %q, %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "transcribe" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-9" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}
}

func TestEmptyValuesNotStored(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected empty stage to be ignored")
	}
}
