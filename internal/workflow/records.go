package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"podflow/internal/logging"
	"podflow/internal/services"
	"podflow/internal/store"
)

// appendStepRecord writes the audit entry for outcome as soon as the step
// finishes, so entries survive an abort later in the run.
func (e *Engine) appendStepRecord(ctx context.Context, ec *ExecutionContext, outcome StepOutcome) error {
	rec := store.StepRecord{
		RunID:      ec.RunID,
		StepIndex:  outcome.Index,
		RecordedAt: e.now(),
		WorkflowID: ec.Workflow.ID,
		Code:       ec.Workflow.Code,
		Token:      outcome.Token,
		Input:      outcome.Input,
		Output:     outcome.Output.String(),
		Message:    outcome.Message,
		Status:     string(outcome.Status),
	}
	if _, err := e.deps.Store.AppendStepRecord(context.WithoutCancel(ctx), rec); err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, e.logger), "step audit record not written", "audit_write_failed",
			logging.Int(logging.FieldStepIndex, outcome.Index),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the store database"),
		)
		return fmt.Errorf("append step record %d: %w", outcome.Index, err)
	}
	return nil
}

func (e *Engine) logStepOutcome(logger *slog.Logger, outcome StepOutcome) {
	attrs := []logging.Attr{
		logging.String("step_kind", kindLabel(outcome.Kind)),
		logging.String("step_status", string(outcome.Status)),
		logging.String("message", outcome.Message),
		logging.Duration("step_duration", outcome.Duration),
	}
	switch outcome.Status {
	case StepCommitted:
		attrs = append(attrs,
			logging.String(logging.FieldEventType, "step_complete"),
			logging.Preview("output_preview", outcome.Output.String(), 100),
		)
		logger.Info("step completed", logging.Args(attrs...)...)
	case StepSkipped:
		attrs = append(attrs, errorAttrs(outcome.Err)...)
		attrs = append(attrs, logging.String(logging.FieldImpact, "step output is null; later R references resolve empty"))
		logging.WarnWithContext(logger, "step skipped", "step_skipped", attrs...)
	case StepAborted:
		attrs = append(attrs, errorAttrs(outcome.Err)...)
		attrs = append(attrs, logging.Alert("run_aborted"))
		logging.ErrorWithContext(logger, "step aborted the run", "step_aborted", attrs...)
	}
}

func errorAttrs(err error) []logging.Attr {
	if err == nil {
		return nil
	}
	details := services.Details(err)
	attrs := []logging.Attr{
		logging.String(logging.FieldErrorKind, details.Kind),
		logging.String(logging.FieldErrorHint, details.Hint),
	}
	if details.Operation != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorOperation, details.Operation))
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(err))
	}
	return attrs
}

func (e *Engine) logRunFinished(logger *slog.Logger, ec *ExecutionContext, result RunResult) {
	committedCount, skippedCount := result.Counts()
	attrs := []logging.Attr{
		logging.String("workflow_title", ec.title()),
		logging.Int("steps_run", len(result.Steps)),
		logging.Int("steps_committed", committedCount),
		logging.Int("steps_skipped", skippedCount),
		logging.Duration("run_duration", result.Duration),
	}
	if result.Aborted {
		attrs = append(attrs,
			logging.Int("aborted_step", result.Fatal.Step),
			logging.String("aborted_token", result.Fatal.Token),
		)
		logging.ErrorWithContext(logger, "run aborted", "run_aborted", attrs...)
		return
	}
	attrs = append(attrs, logging.String(logging.FieldEventType, "run_complete"))
	logger.Info("run completed", logging.Args(attrs...)...)
}

// failureMessage renders err for the audit trail.
func failureMessage(prefix string, err error) string {
	if err == nil {
		return prefix
	}
	return fmt.Sprintf("%s: %s", strings.TrimSuffix(prefix, "."), strings.TrimSpace(err.Error()))
}
