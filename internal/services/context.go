package services

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	workflowIDKey contextKey = "workflow_id"
	stepKey       contextKey = "step"
	requestIDKey  contextKey = "request_id"
)

// StepRef identifies the step currently executing.
type StepRef struct {
	Index int
	Token string
}

// WithRunID annotates context with the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithWorkflowID annotates context with the workflow identifier.
func WithWorkflowID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, workflowIDKey, id)
}

// WorkflowIDFromContext extracts the workflow identifier if present.
func WorkflowIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(workflowIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithStep annotates context with the executing step.
func WithStep(ctx context.Context, step StepRef) context.Context {
	if step.Index <= 0 {
		return ctx
	}
	return context.WithValue(ctx, stepKey, step)
}

// StepFromContext returns the executing step if present.
func StepFromContext(ctx context.Context) (StepRef, bool) {
	step, ok := ctx.Value(stepKey).(StepRef)
	return step, ok
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
