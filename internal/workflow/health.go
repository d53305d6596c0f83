package workflow

import (
	"context"
	"fmt"
	"slices"

	"podflow/internal/stage"
	"podflow/internal/stepcode"
)

// Checkers returns health checkers for every configured collaborator.
func (e *Engine) Checkers() []stage.Checker {
	var checkers []stage.Checker
	if e.deps.Store != nil {
		checkers = append(checkers, stage.CheckerFunc(func(ctx context.Context) stage.Health {
			if _, err := e.deps.Store.DefaultModel(ctx); err != nil {
				return stage.Unhealthy("store", err.Error())
			}
			return stage.Healthy("store")
		}))
	}
	if checker, ok := e.deps.Generator.(stage.Checker); ok {
		checkers = append(checkers, checker)
	} else if e.deps.Generator == nil {
		checkers = append(checkers, missing("generation"))
	}
	if e.deps.Objects != nil {
		checkers = append(checkers, e.deps.Objects)
	} else {
		checkers = append(checkers, missing("storage"))
	}
	families := make([]stepcode.VoiceFamily, 0, len(e.deps.Voices))
	for family := range e.deps.Voices {
		families = append(families, family)
	}
	slices.Sort(families)
	for _, family := range families {
		synth := e.deps.Voices[family]
		if checker, ok := synth.(stage.Checker); ok {
			checkers = append(checkers, checker)
		}
	}
	return checkers
}

// Health probes every collaborator.
func (e *Engine) Health(ctx context.Context) []stage.Health {
	return stage.Probe(ctx, e.Checkers()...)
}

func missing(name string) stage.Checker {
	return stage.CheckerFunc(func(context.Context) stage.Health {
		return stage.Unhealthy(name, fmt.Sprintf("%s is not configured", name))
	})
}
