package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"

	"podflow/internal/services/llm"
	"podflow/internal/store"
	"podflow/internal/testsupport"
	"podflow/internal/workflow"
)

func newRunner(t *testing.T, h *harness) *workflow.Runner {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithMaxConcurrentRuns(2))
	return workflow.NewRunner(cfg, h.engine, h.store, nil)
}

func TestRunnerRunsActiveWorkflows(t *testing.T) {
	h := newHarness(t, nil)
	runner := newRunner(t, h)

	batch, err := runner.RunActive(context.Background(), workflow.Selector{TopicOverride: "tides"})
	require.NoError(t, err)
	require.Len(t, batch.Runs, 2, "the paused workflow is not selected")
	require.False(t, batch.Aborted())
	require.Empty(t, batch.Busy)

	ids := map[int64]bool{}
	for _, run := range batch.Runs {
		ids[run.WorkflowID] = true
	}
	require.True(t, ids[1] && ids[2])
	require.NotEqual(t, batch.Runs[0].RunID, batch.Runs[1].RunID)
}

func TestRunnerSelectsSingleWorkflow(t *testing.T) {
	h := newHarness(t, nil)
	runner := newRunner(t, h)

	batch, err := runner.RunActive(context.Background(), workflow.Selector{WorkflowID: 2, TopicOverride: "tides"})
	require.NoError(t, err)
	require.Len(t, batch.Runs, 1)
	require.Equal(t, "tides\n\nWrite a headline", h.generator.Requests()[0].Prompt)

	_, err = runner.RunActive(context.Background(), workflow.Selector{WorkflowID: 42})
	require.Error(t, err)
}

func TestRunnerReportsAbortedBatch(t *testing.T) {
	h := newHarness(t, func(llm.Request) (string, error) {
		return "", errors.New("model overloaded")
	})
	runner := newRunner(t, h)

	batch, err := runner.RunActive(context.Background(), workflow.Selector{WorkflowID: 1})
	require.NoError(t, err)
	require.Len(t, batch.Runs, 1)
	require.True(t, batch.Aborted())
}

func TestRunnerSkipsLockedWorkflow(t *testing.T) {
	h := newHarness(t, nil)
	cfg := testsupport.NewConfig(t)
	runner := workflow.NewRunner(cfg, h.engine, h.store, nil)

	held := flock.New(filepath.Join(cfg.Workflow.LockDir, "workflow-1.lock"))
	require.NoError(t, os.MkdirAll(cfg.Workflow.LockDir, 0o755))
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { _ = held.Unlock() })

	batch, err := runner.RunActive(context.Background(), workflow.Selector{WorkflowID: 1})
	require.NoError(t, err)
	require.Empty(t, batch.Runs)
	require.Equal(t, []int64{1}, batch.Busy)
}

type failingRecords struct {
	workflow.Store
	workflowID int64
}

func (f failingRecords) AppendStepRecord(ctx context.Context, rec store.StepRecord) (int64, error) {
	if rec.WorkflowID == f.workflowID {
		return 0, errors.New("disk full")
	}
	return f.Store.AppendStepRecord(ctx, rec)
}

func TestRunnerKeepsSiblingRunsWhenOneFailsToFlush(t *testing.T) {
	h := newHarness(t, headlineResponder, func(deps *workflow.Dependencies) {
		deps.Store = failingRecords{Store: deps.Store, workflowID: 1}
	})
	runner := newRunner(t, h)

	batch, err := runner.RunActive(context.Background(), workflow.Selector{TopicOverride: "tides"})
	require.Error(t, err)
	require.ErrorContains(t, err, "workflow 1")
	require.NotContains(t, err.Error(), "workflow 2")
	require.Len(t, batch.Runs, 2, "the run whose records failed is still reported")
	require.Empty(t, batch.Busy)

	byID := map[int64]workflow.RunResult{}
	for _, run := range batch.Runs {
		byID[run.WorkflowID] = run
	}
	require.Contains(t, byID, int64(1))
	require.False(t, byID[2].Aborted)
	require.Equal(t, store.RunCompleted, byID[2].OutputRecord.Status)
	require.NotEmpty(t, byID[2].AllOutputs)
}
