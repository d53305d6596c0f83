package logging

import (
	"context"
	"log/slog"

	"podflow/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for run identifiers.
	FieldRunID = "run_id"
	// FieldWorkflowID is the standardized structured logging key for workflow identifiers.
	FieldWorkflowID = "workflow_id"
	// FieldStepIndex is the 1-based position of the step within its workflow code.
	FieldStepIndex = "step_index"
	// FieldStepToken is the raw token of the step being executed.
	FieldStepToken = "step_token"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType labels the lifecycle event a record describes.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries the error marker classification.
	FieldErrorKind = "error_kind"
	// FieldErrorOperation names the operation that failed.
	FieldErrorOperation = "error_operation"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 5)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if id, ok := services.WorkflowIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldWorkflowID, id))
	}
	if step, ok := services.StepFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldStepIndex, step.Index), slog.String(FieldStepToken, step.Token))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
