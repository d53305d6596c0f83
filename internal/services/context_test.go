package services_test

import (
	"context"
	"testing"

	"podflow/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithWorkflowID(ctx, 42)
	ctx = services.WithStep(ctx, services.StepRef{Index: 3, Token: "P2M1"})
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.WorkflowIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected workflow id: %v %v", id, ok)
	}
	if step, ok := services.StepFromContext(ctx); !ok || step.Index != 3 || step.Token != "P2M1" {
		t.Fatalf("unexpected step: %+v %v", step, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "")
	ctx = services.WithStep(ctx, services.StepRef{})
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id")
	}
	if _, ok := services.StepFromContext(ctx); ok {
		t.Fatal("expected no step value")
	}
	if _, ok := services.WorkflowIDFromContext(ctx); ok {
		t.Fatal("expected no workflow id")
	}
}
