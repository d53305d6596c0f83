package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"podflow/internal/logging"
	"podflow/internal/refs"
	"podflow/internal/services"
	"podflow/internal/services/llm"
	"podflow/internal/stepcode"
	"podflow/internal/store"
	"podflow/internal/textnorm"
)

// runPromptChain resolves the fragments, calls the selected model and
// records the normalized response. Generation failures abort the run.
func (e *Engine) runPromptChain(ctx context.Context, ec *ExecutionContext, step stepcode.Step, params stepcode.PromptChain) StepOutcome {
	resolution := e.resolver.Join(ctx, params.Parts, ec.Scope())
	input := resolution.Text
	if len(resolution.Missing) > 0 {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "prompt chain has unresolved references", "reference_unresolved",
			logging.String("missing", strings.Join(resolution.Missing, ",")),
			logging.String(logging.FieldImpact, "missing fragments contribute empty text"),
		)
	}

	model, err := e.selectModel(ctx, ec, params.ModelRef)
	if err != nil {
		return aborted(step.Kind, input, failureMessage("Failed to select a model. Aborting workflow.", err), err)
	}
	if e.deps.Generator == nil {
		err := services.Wrap(services.ErrConfiguration, "workflow", "prompt chain", "text generator unavailable", nil)
		return aborted(step.Kind, input, "Text generation is not configured. Aborting workflow.", err)
	}

	response, err := e.deps.Generator.Generate(ctx, llm.Request{
		Prompt:    input,
		Model:     model.Name,
		WebSearch: model.SupportsWebSearch,
	})
	if err != nil {
		err = markProviderFatal(err, "generate", model.Name)
		msg := fmt.Sprintf("Failed to generate text with %s for step %d. Aborting workflow.", model.Name, step.Index)
		return aborted(step.Kind, input, msg, err)
	}
	response = textnorm.Normalize(response)
	ec.Record(step.Index, input, response)
	output := refs.TextOutput(response)
	message := fmt.Sprintf("Generated response with %s.", model.Name)

	if params.Save <= 0 {
		return committed(step.Kind, input, output, message)
	}
	uri, err := e.saveText(ctx, ec, step.Index, params.Save, params.TitleRef, response)
	switch {
	case err == nil:
		output.URI = uri
		return committed(step.Kind, input, output, message+" Saved response to storage: "+uri)
	case errors.Is(err, services.ErrResolution):
		// The response stays referenceable even though it was not stored.
		return committed(step.Kind, input, output, message+" "+saveFailureMessage(params.Save, err))
	default:
		return aborted(step.Kind, input, saveFailureMessage(params.Save, err)+" Aborting workflow.", err)
	}
}

// selectModel picks the M<id> override when it exists, otherwise the
// workflow default, the catalog default and finally the configured default.
func (e *Engine) selectModel(ctx context.Context, ec *ExecutionContext, ref int64) (store.Model, error) {
	if ref > 0 {
		model, err := e.resolver.Model(ctx, ref)
		if err != nil {
			return store.Model{}, services.Wrap(services.ErrProviderFatal, "workflow", "select model", fmt.Sprintf("M%d", ref), err)
		}
		if model != nil && strings.TrimSpace(model.Name) != "" {
			return *model, nil
		}
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "model override not found", "model_override_missing",
			logging.String("model_ref", fmt.Sprintf("M%d", ref)),
			logging.String(logging.FieldImpact, "the default model is used instead"),
			logging.String(logging.FieldErrorHint, "run the UM step or fix the workflow code"),
		)
	}

	if name := strings.TrimSpace(ec.Workflow.DefaultModel); name != "" {
		return e.modelNamed(ctx, name)
	}
	model, err := e.deps.Store.DefaultModel(ctx)
	if err != nil {
		return store.Model{}, services.Wrap(services.ErrProviderFatal, "workflow", "select model", "default model", err)
	}
	if model != nil && strings.TrimSpace(model.Name) != "" {
		return *model, nil
	}
	if e.defaultModel != "" {
		return e.modelNamed(ctx, e.defaultModel)
	}
	return store.Model{}, services.Wrap(services.ErrConfiguration, "workflow", "select model", "no default model configured", nil)
}

// modelNamed looks up the baseline catalog row for name so the web-search
// flag follows the catalog. Names missing from the catalog are used as-is.
func (e *Engine) modelNamed(ctx context.Context, name string) (store.Model, error) {
	model, err := e.deps.Store.ModelByName(ctx, name, false)
	if err != nil {
		return store.Model{}, services.Wrap(services.ErrProviderFatal, "workflow", "select model", name, err)
	}
	if model == nil {
		return store.Model{Name: name}, nil
	}
	return *model, nil
}
