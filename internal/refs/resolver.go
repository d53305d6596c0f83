package refs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"podflow/internal/logging"
	"podflow/internal/stepcode"
	"podflow/internal/store"
)

// FragmentSeparator joins non-empty fragments of a prompt chain.
const FragmentSeparator = "\n\n"

// PromptLookup fetches prompt text by id.
type PromptLookup interface {
	Prompt(ctx context.Context, id int64) (*store.Prompt, error)
}

// ModelLookup fetches model catalog entries by id.
type ModelLookup interface {
	Model(ctx context.Context, id int64) (*store.Model, error)
}

// Lookups bundles the configuration tables the resolver reads.
type Lookups interface {
	PromptLookup
	ModelLookup
}

// Scope is the run state references resolve against.
type Scope struct {
	Outputs []*Output
	// CustomTopic is the workflow's own topic; TopicOverride is used when it
	// is blank.
	CustomTopic   string
	TopicOverride string
}

// Topic returns the custom topic C/C1 resolves to.
func (s Scope) Topic() string {
	if topic := strings.TrimSpace(s.CustomTopic); topic != "" {
		return s.CustomTopic
	}
	return s.TopicOverride
}

// Resolution is the joined text of a chain plus the references that did not
// resolve.
type Resolution struct {
	Text    string
	Missing []string
}

// Resolver resolves step references.
type Resolver struct {
	lookups Lookups
	logger  *slog.Logger
}

// NewResolver builds a resolver over the given lookups.
func NewResolver(lookups Lookups, logger *slog.Logger) *Resolver {
	return &Resolver{lookups: lookups, logger: logging.NewComponentLogger(logger, "refs")}
}

// Fragment resolves a single P/R/C fragment. The boolean is false when the
// fragment referenced something that does not exist.
func (r *Resolver) Fragment(ctx context.Context, frag stepcode.Fragment, scope Scope) (string, bool) {
	switch frag.Kind {
	case stepcode.FragmentPrompt:
		prompt, err := r.lookups.Prompt(ctx, frag.ID)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, r.logger), "prompt lookup failed", "prompt_lookup_failed",
				logging.String("fragment", frag.Raw),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the store database"),
				logging.String(logging.FieldImpact, "fragment resolves to empty text"),
			)
			return "", false
		}
		if prompt == nil {
			return "", false
		}
		return prompt.Text, true
	case stepcode.FragmentResponse:
		return Response(scope.Outputs, int(frag.ID))
	case stepcode.FragmentCustom:
		return scope.Topic(), true
	default:
		return "", false
	}
}

// Join resolves every fragment in order and concatenates the non-empty
// results with FragmentSeparator.
func (r *Resolver) Join(ctx context.Context, parts []stepcode.Fragment, scope Scope) Resolution {
	var (
		res   Resolution
		texts = make([]string, 0, len(parts))
	)
	for _, frag := range parts {
		text, ok := r.Fragment(ctx, frag, scope)
		if !ok {
			res.Missing = append(res.Missing, frag.Raw)
			r.logger.Debug("reference unresolved", logging.Args(
				logging.String("fragment", frag.Raw),
				logging.String(logging.FieldEventType, "reference_unresolved"),
			)...)
		}
		if text == "" {
			continue
		}
		texts = append(texts, text)
	}
	res.Text = strings.Join(texts, FragmentSeparator)
	return res
}

// Model resolves an M<id> override. A nil model with a nil error means the
// id is not in the catalog.
func (r *Resolver) Model(ctx context.Context, id int64) (*store.Model, error) {
	if id <= 0 {
		return nil, nil
	}
	model, err := r.lookups.Model(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve model M%d: %w", id, err)
	}
	return model, nil
}
