package workflow

import (
	"fmt"
	"time"

	"podflow/internal/refs"
	"podflow/internal/stepcode"
	"podflow/internal/store"
)

// StepStatus is the terminal state of one step.
type StepStatus string

const (
	// StepCommitted means the step produced its result.
	StepCommitted StepStatus = "committed"
	// StepSkipped means a precondition was unmet or a non-critical provider
	// failed; the run continues with a null output for the step.
	StepSkipped StepStatus = "skipped"
	// StepAborted means the step failed fatally and the run stopped.
	StepAborted StepStatus = "aborted"
)

// StepOutcome is the typed result every step handler returns.
type StepOutcome struct {
	Index    int
	Token    string
	Kind     stepcode.Kind
	Status   StepStatus
	Input    string
	Output   *refs.Output
	Message  string
	Err      error
	Duration time.Duration
}

// Failed reports whether the step did not commit.
func (o StepOutcome) Failed() bool {
	return o.Status != StepCommitted
}

// RunFatalError reports the step that stopped a run.
type RunFatalError struct {
	Step  int
	Token string
	Err   error
}

func (e *RunFatalError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("step %d (%s) aborted the run: %v", e.Step, e.Token, e.Err)
}

func (e *RunFatalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RunOptions carries per-run overrides.
type RunOptions struct {
	// RunID is generated when empty.
	RunID string
	// TopicOverride is used for C/C1 when the workflow has no custom topic.
	TopicOverride string
}

// RunResult is the full record of one run.
type RunResult struct {
	RunID        string
	WorkflowID   int64
	Steps        []StepOutcome
	AllOutputs   []*refs.Output
	OutputRecord store.OutputRecord
	Aborted      bool
	Fatal        *RunFatalError
	Duration     time.Duration
}

// Counts tallies committed and skipped steps.
func (r RunResult) Counts() (committed, skipped int) {
	for _, step := range r.Steps {
		switch step.Status {
		case StepCommitted:
			committed++
		case StepSkipped:
			skipped++
		}
	}
	return committed, skipped
}

func committed(kind stepcode.Kind, input string, output *refs.Output, message string) StepOutcome {
	return StepOutcome{Kind: kind, Status: StepCommitted, Input: input, Output: output, Message: message}
}

func skipped(kind stepcode.Kind, input, message string, err error) StepOutcome {
	return StepOutcome{Kind: kind, Status: StepSkipped, Input: input, Message: message, Err: err}
}

func aborted(kind stepcode.Kind, input, message string, err error) StepOutcome {
	return StepOutcome{Kind: kind, Status: StepAborted, Input: input, Message: message, Err: err}
}
