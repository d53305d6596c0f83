package workflow

import (
	"context"
	"errors"
	"fmt"

	"podflow/internal/refs"
	"podflow/internal/services"
	"podflow/internal/stepcode"
	"podflow/internal/storage"
	"podflow/internal/store"
	"podflow/internal/textnorm"
	"podflow/internal/textutil"
)

// runSaveOnly persists an earlier step's output verbatim. Missing references
// and storage failures skip.
func (e *Engine) runSaveOnly(ctx context.Context, ec *ExecutionContext, step stepcode.Step, params stepcode.SaveOnly) StepOutcome {
	text, ok := refs.Response(ec.AllOutputs, params.ResponseRef)
	if !ok {
		err := services.Wrap(services.ErrResolution, "workflow", "save only", fmt.Sprintf("R%d has no output", params.ResponseRef), nil)
		return skipped(step.Kind, "", fmt.Sprintf("Response index %d not found in previous outputs.", params.ResponseRef), err)
	}
	text = textnorm.Normalize(text)

	uri, err := e.saveText(ctx, ec, step.Index, params.Location, params.TitleRef, text)
	if err != nil {
		return skipped(step.Kind, text, saveFailureMessage(params.Location, err), err)
	}
	ec.Record(step.Index, text, uri)
	return committed(step.Kind, text, &refs.Output{Kind: refs.OutputText, Text: text, URI: uri},
		"Saved response to storage: "+uri)
}

// saveText writes text under the save location with a titled or generic
// file name and returns the object URI.
func (e *Engine) saveText(ctx context.Context, ec *ExecutionContext, stepIndex int, locationID int64, titleRef int, text string) (string, error) {
	loc, err := e.location(ctx, locationID)
	if err != nil {
		return "", err
	}
	if e.deps.Objects == nil {
		return "", services.Wrap(services.ErrConfiguration, "workflow", "save text", "object storage unavailable", nil)
	}
	name := textutil.TitledName(e.now(), ec.TitleSource(titleRef), "txt", textutil.StepTextName(ec.Workflow.ID, stepIndex))
	return storage.PutText(ctx, e.deps.Objects, storage.Join(loc.Prefix(), name), text)
}

// location fetches a location; absent ids are marked ErrResolution.
func (e *Engine) location(ctx context.Context, id int64) (*store.Location, error) {
	loc, err := e.deps.Store.Location(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrProviderFatal, "workflow", "lookup location", fmt.Sprintf("L%d", id), err)
	}
	if loc == nil {
		return nil, services.Wrap(services.ErrResolution, "workflow", "lookup location", fmt.Sprintf("location %d not found", id), nil)
	}
	return loc, nil
}

func saveFailureMessage(locationID int64, err error) string {
	if errors.Is(err, services.ErrResolution) {
		return fmt.Sprintf("Location ID %d not found.", locationID)
	}
	return failureMessage("Failed to save response to storage.", err)
}
