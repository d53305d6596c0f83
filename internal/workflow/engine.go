package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"podflow/internal/config"
	"podflow/internal/logging"
	"podflow/internal/metrics"
	"podflow/internal/notifications"
	"podflow/internal/refs"
	"podflow/internal/services"
	"podflow/internal/services/llm"
	"podflow/internal/speech"
	"podflow/internal/stepcode"
	"podflow/internal/storage"
	"podflow/internal/store"
)

// Store is the slice of the configuration store the engine reads and the
// record surfaces it writes.
type Store interface {
	refs.Lookups
	DefaultModel(ctx context.Context) (*store.Model, error)
	ModelByName(ctx context.Context, name string, webSearch bool) (*store.Model, error)
	Location(ctx context.Context, id int64) (*store.Location, error)
	VoiceProfile(ctx context.Context, id int64) (*store.VoiceProfile, error)
	RecentEpisodes(ctx context.Context, n int) ([]store.Episode, error)
	AppendStepRecord(ctx context.Context, rec store.StepRecord) (int64, error)
	SaveOutputRecord(ctx context.Context, rec store.OutputRecord) error
}

// Refresher rebuilds an external catalog and summarizes the update.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Dependencies are the collaborators a run calls out to. Nil providers make
// the steps that need them skip or abort per the failure policy.
type Dependencies struct {
	Store     Store
	Generator llm.Generator
	Objects   storage.ObjectStore
	Narrator  *speech.Narrator
	Voices    map[stepcode.VoiceFamily]speech.Synthesizer
	Feed      Refresher
	Models    Refresher
	Notifier  notifications.Service
}

// Engine walks a workflow code step by step and enforces the failure
// policy. An Engine is safe for concurrent runs; each run owns its own
// ExecutionContext.
type Engine struct {
	deps         Dependencies
	resolver     *refs.Resolver
	defaultModel string
	logger       *slog.Logger
	now          func() time.Time
	newRunID     func() string
}

// EngineOption configures optional Engine behavior.
type EngineOption func(*Engine)

// WithClock overrides the time source used for filenames and records.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRunIDs overrides run id generation.
func WithRunIDs(next func() string) EngineOption {
	return func(e *Engine) {
		if next != nil {
			e.newRunID = next
		}
	}
}

// NewEngine builds an engine. cfg supplies the fallback default model.
func NewEngine(cfg *config.Config, deps Dependencies, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(&config.Config{})
	}
	if deps.Narrator == nil {
		deps.Narrator = speech.NewNarrator(nil, logger)
	}
	e := &Engine{
		deps:     deps,
		resolver: refs.NewResolver(deps.Store, logger),
		logger:   logging.NewComponentLogger(logger, "workflow-engine"),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	if cfg != nil {
		e.defaultModel = strings.TrimSpace(cfg.Workflow.DefaultModel)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes wf to completion or abort. The returned error is non-nil only
// when the run could not start or its records could not be flushed; an
// aborted run reports through RunResult.Fatal.
func (e *Engine) Run(ctx context.Context, wf store.Workflow, opts RunOptions) (RunResult, error) {
	if e.deps.Store == nil {
		return RunResult{}, services.Wrap(services.ErrConfiguration, "workflow", "run", "configuration store unavailable", nil)
	}
	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		runID = e.newRunID()
	}
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithWorkflowID(ctx, wf.ID)
	logger := logging.WithContext(ctx, e.logger)

	start := e.now()
	ec := newExecutionContext(runID, wf, start, opts.TopicOverride)
	result := RunResult{RunID: runID, WorkflowID: wf.ID}

	tokens := stepcode.Tokens(wf.Code)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("workflow_title", ec.title()),
		logging.String("workflow_code", wf.Code),
		logging.Int("step_count", len(tokens)),
	)
	metrics.RunStarted()
	if err := e.deps.Store.SaveOutputRecord(context.WithoutCancel(ctx), ec.outputRecord(store.RunRunning)); err != nil {
		metrics.RunFinished(string(store.RunAborted))
		return result, services.Wrap(services.ErrConfiguration, "workflow", "create output record", runID, err)
	}

	var flushErr error
	for i, token := range tokens {
		if err := ctx.Err(); err != nil {
			result.Fatal = &RunFatalError{Step: i + 1, Token: token, Err: err}
			break
		}
		outcome := e.runStep(ctx, ec, i+1, token)
		ec.Append(outcome.Output)
		result.Steps = append(result.Steps, outcome)
		if err := e.appendStepRecord(ctx, ec, outcome); err != nil {
			flushErr = errors.Join(flushErr, err)
		}
		if outcome.Status == StepAborted {
			result.Fatal = &RunFatalError{Step: outcome.Index, Token: outcome.Token, Err: outcome.Err}
			break
		}
	}

	result.Aborted = result.Fatal != nil
	result.AllOutputs = ec.AllOutputs
	result.Duration = e.now().Sub(start)
	status := store.RunCompleted
	if result.Aborted {
		status = store.RunAborted
	}
	result.OutputRecord = ec.outputRecord(status)
	if err := e.deps.Store.SaveOutputRecord(context.WithoutCancel(ctx), result.OutputRecord); err != nil {
		flushErr = errors.Join(flushErr, services.Wrap(services.ErrConfiguration, "workflow", "save output record", runID, err))
	}
	metrics.RunFinished(string(status))
	e.logRunFinished(logger, ec, result)
	e.notifyRunFinished(ctx, ec, result)
	return result, flushErr
}

func (e *Engine) runStep(ctx context.Context, ec *ExecutionContext, index int, token string) StepOutcome {
	ctx = services.WithStep(ctx, services.StepRef{Index: index, Token: token})
	logger := logging.WithContext(ctx, e.logger)
	start := e.now()

	step, err := stepcode.NewStep(index, token)
	var outcome StepOutcome
	if err != nil {
		outcome = aborted(0, "", "Unrecognized step code "+token+".", err)
	} else {
		logger.Info("step started",
			logging.String(logging.FieldEventType, "step_start"),
			logging.String("step_kind", step.Kind.String()),
		)
		outcome = e.dispatch(ctx, ec, step)
		outcome.Kind = step.Kind
	}
	outcome.Index = index
	outcome.Token = token
	outcome.Duration = e.now().Sub(start)
	if outcome.Status != StepCommitted {
		outcome.Output = nil
	}
	e.logStepOutcome(logger, outcome)
	metrics.RecordStep(kindLabel(outcome.Kind), string(outcome.Status), outcome.Duration)
	return outcome
}

func (e *Engine) dispatch(ctx context.Context, ec *ExecutionContext, step stepcode.Step) StepOutcome {
	switch params := step.Params.(type) {
	case stepcode.PostedRefresh:
		return e.runPostedRefresh(ctx, ec, step)
	case stepcode.ModelRefresh:
		return e.runModelRefresh(ctx, ec, step)
	case stepcode.PostedList:
		return e.runPostedList(ctx, ec, step, params)
	case stepcode.SaveOnly:
		return e.runSaveOnly(ctx, ec, step, params)
	case stepcode.Synthesize:
		return e.runSynthesize(ctx, ec, step, params)
	case stepcode.AudioMerge:
		return e.runAudioMerge(ctx, ec, step, params)
	case stepcode.PromptChain:
		return e.runPromptChain(ctx, ec, step, params)
	default:
		err := services.Wrap(services.ErrClassification, "workflow", "dispatch", "no handler for "+step.Kind.String(), nil)
		return aborted(step.Kind, "", "No handler for step "+step.Token+".", err)
	}
}

func kindLabel(kind stepcode.Kind) string {
	if kind == 0 {
		return "unclassified"
	}
	return kind.String()
}
