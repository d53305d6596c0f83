package workflow

import (
	"context"
	"errors"

	"podflow/internal/logging"
	"podflow/internal/notifications"
)

func (e *Engine) notifyRunFinished(ctx context.Context, ec *ExecutionContext, result RunResult) {
	if e.deps.Notifier == nil {
		return
	}
	committedCount, skippedCount := result.Counts()
	summary := notifications.RunSummary{
		RunID:         result.RunID,
		WorkflowID:    ec.Workflow.ID,
		WorkflowTitle: ec.title(),
		Steps:         len(result.Steps),
		Committed:     committedCount,
		Skipped:       skippedCount,
		Duration:      result.Duration,
	}
	var err error
	if result.Aborted {
		summary.AbortedStep = result.Fatal.Step
		summary.AbortedToken = result.Fatal.Token
		if len(result.Steps) > 0 {
			summary.Reason = result.Steps[len(result.Steps)-1].Message
		}
		if summary.Reason == "" && result.Fatal.Err != nil {
			summary.Reason = result.Fatal.Err.Error()
		}
		err = e.deps.Notifier.NotifyRunAborted(ctx, summary)
	} else {
		err = e.deps.Notifier.NotifyRunCompleted(ctx, summary)
	}
	if err == nil {
		return
	}
	logger := logging.WithContext(ctx, e.logger)
	if errors.Is(err, context.Canceled) {
		logger.Debug("shutting down, could not send run notification")
		return
	}
	logger.Debug("run notification failed", logging.Error(err))
}
