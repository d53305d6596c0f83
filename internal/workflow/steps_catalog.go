package workflow

import (
	"context"
	"fmt"
	"strings"

	"podflow/internal/refs"
	"podflow/internal/services"
	"podflow/internal/stepcode"
)

// runPostedRefresh rebuilds the posted-episode catalog. Failures skip.
func (e *Engine) runPostedRefresh(ctx context.Context, ec *ExecutionContext, step stepcode.Step) StepOutcome {
	if e.deps.Feed == nil {
		err := services.Wrap(services.ErrConfiguration, "workflow", "posted refresh", "feed refresher unavailable", nil)
		return skipped(step.Kind, "", "Posted episode feed is not configured.", err)
	}
	msg, err := e.deps.Feed.Refresh(ctx)
	if err != nil {
		return skipped(step.Kind, "", failureMessage("Failed to refresh posted episodes.", err), err)
	}
	ec.Record(step.Index, "", msg)
	return committed(step.Kind, "", refs.TextOutput(msg), msg)
}

// runModelRefresh merges live provider models into the catalog. Failures
// skip.
func (e *Engine) runModelRefresh(ctx context.Context, ec *ExecutionContext, step stepcode.Step) StepOutcome {
	if e.deps.Models == nil {
		err := services.Wrap(services.ErrConfiguration, "workflow", "model refresh", "model refresher unavailable", nil)
		return skipped(step.Kind, "", "Model catalog refresh is not configured.", err)
	}
	msg, err := e.deps.Models.Refresh(ctx)
	if err != nil {
		return skipped(step.Kind, "", failureMessage("Failed to update model catalog.", err), err)
	}
	output := "Model catalog updated successfully. " + msg
	ec.Record(step.Index, "", output)
	return committed(step.Kind, "", refs.TextOutput(output), msg)
}

// runPostedList formats the newest posted episodes, newest first.
func (e *Engine) runPostedList(ctx context.Context, ec *ExecutionContext, step stepcode.Step, params stepcode.PostedList) StepOutcome {
	input := step.Token
	episodes, err := e.deps.Store.RecentEpisodes(ctx, params.Count)
	if err != nil {
		return skipped(step.Kind, input, failureMessage("Failed to retrieve posted episodes.", err), err)
	}
	blocks := make([]string, 0, len(episodes))
	for _, ep := range episodes {
		blocks = append(blocks, fmt.Sprintf("Title: %s\nDescription Short: %s", ep.Title, ep.ShortDescription))
	}
	output := strings.Join(blocks, "\n\n")
	ec.Record(step.Index, input, output)
	msg := fmt.Sprintf("Retrieved last %d posted podcast episodes.", len(episodes))
	return committed(step.Kind, input, refs.TextOutput(output), msg)
}
