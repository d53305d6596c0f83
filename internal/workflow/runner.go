package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"podflow/internal/config"
	"podflow/internal/logging"
	"podflow/internal/services"
	"podflow/internal/store"
)

// WorkflowSource lists the workflows a runner may execute.
type WorkflowSource interface {
	Workflows(ctx context.Context, activeOnly bool) ([]store.Workflow, error)
	Workflow(ctx context.Context, id int64) (*store.Workflow, error)
}

// Selector chooses which workflows a batch runs. A zero WorkflowID runs
// every active workflow.
type Selector struct {
	WorkflowID    int64
	TopicOverride string
}

// BatchResult aggregates the runs of one batch.
type BatchResult struct {
	Runs []RunResult
	// Busy lists workflows skipped because another process held their lock.
	Busy []int64
}

// Aborted reports whether any run in the batch aborted.
func (b BatchResult) Aborted() bool {
	for _, run := range b.Runs {
		if run.Aborted {
			return true
		}
	}
	return false
}

// Runner executes selected workflows with bounded concurrency. Runs never
// share an ExecutionContext.
type Runner struct {
	engine  *Engine
	source  WorkflowSource
	limit   int
	lockDir string
	logger  *slog.Logger
}

// NewRunner builds a runner over engine.
func NewRunner(cfg *config.Config, engine *Engine, source WorkflowSource, logger *slog.Logger) *Runner {
	r := &Runner{
		engine: engine,
		source: source,
		limit:  1,
		logger: logging.NewComponentLogger(logger, "workflow-runner"),
	}
	if cfg != nil {
		if cfg.Workflow.MaxConcurrentRuns > 0 {
			r.limit = cfg.Workflow.MaxConcurrentRuns
		}
		r.lockDir = cfg.Workflow.LockDir
	}
	return r
}

// Select resolves sel to the workflows it names.
func (r *Runner) Select(ctx context.Context, sel Selector) ([]store.Workflow, error) {
	if sel.WorkflowID > 0 {
		wf, err := r.source.Workflow(ctx, sel.WorkflowID)
		if err != nil {
			return nil, fmt.Errorf("load workflow %d: %w", sel.WorkflowID, err)
		}
		if wf == nil {
			return nil, services.Wrap(services.ErrNotFound, "workflow", "select", fmt.Sprintf("workflow %d not found", sel.WorkflowID), nil)
		}
		return []store.Workflow{*wf}, nil
	}
	workflows, err := r.source.Workflows(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list active workflows: %w", err)
	}
	return workflows, nil
}

// RunActive runs every workflow sel names. Individual aborts are reported
// in the result; the error is reserved for selection and record failures.
// A failing workflow never cancels its siblings, and any run that started
// is reported in the result even when its records failed to flush.
func (r *Runner) RunActive(ctx context.Context, sel Selector) (BatchResult, error) {
	workflows, err := r.Select(ctx, sel)
	if err != nil {
		return BatchResult{}, err
	}
	if len(workflows) == 0 {
		r.logger.Info("no active workflows", logging.String(logging.FieldEventType, "batch_empty"))
		return BatchResult{}, nil
	}

	var (
		mu     sync.Mutex
		group  errgroup.Group
		result BatchResult
		errs   []error
	)
	runs := make([]RunResult, len(workflows))
	done := make([]bool, len(workflows))
	group.SetLimit(r.limit)
	for i, wf := range workflows {
		group.Go(func() error {
			run, ran, err := r.runOne(ctx, wf, sel.TopicOverride)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("workflow %d: %w", wf.ID, err))
			}
			if !ran && err == nil {
				result.Busy = append(result.Busy, wf.ID)
			}
			runs[i] = run
			done[i] = ran
			return nil
		})
	}
	_ = group.Wait()
	err = errors.Join(errs...)
	for i := range runs {
		if done[i] {
			result.Runs = append(result.Runs, runs[i])
		}
	}
	r.logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("workflows", len(workflows)),
		logging.Int("runs", len(result.Runs)),
		logging.Int("busy", len(result.Busy)),
		logging.Bool("aborted", result.Aborted()),
	)
	return result, err
}

func (r *Runner) runOne(ctx context.Context, wf store.Workflow, topic string) (RunResult, bool, error) {
	lock, err := newRunLock(r.lockDir, wf.ID)
	if err != nil {
		return RunResult{}, false, err
	}
	ok, err := lock.TryLock()
	if err != nil {
		return RunResult{}, false, err
	}
	if !ok {
		logging.WarnWithContext(r.logger, "workflow already running elsewhere", "workflow_busy",
			logging.Int64("workflow_id", wf.ID),
			logging.String(logging.FieldImpact, "this workflow is not run in the current batch"),
			logging.String(logging.FieldErrorHint, "wait for the other run to finish"),
		)
		return RunResult{}, false, nil
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Debug("release workflow lock", logging.Error(err))
		}
	}()
	run, err := r.engine.Run(ctx, wf, RunOptions{TopicOverride: topic})
	return run, true, err
}
