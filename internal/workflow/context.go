package workflow

import (
	"fmt"
	"strings"
	"time"

	"podflow/internal/refs"
	"podflow/internal/store"
)

// ExecutionContext is the mutable state of one run. It is created by
// Engine.Run and never shared between runs.
type ExecutionContext struct {
	RunID         string
	Workflow      store.Workflow
	TriggeredAt   time.Time
	TopicOverride string

	// AllOutputs holds exactly one entry per finished step; nil marks a
	// skipped or aborted step.
	AllOutputs []*refs.Output
	// Columns pairs each step's input and output as Output<2i+1> and
	// Output<2i+2>.
	Columns map[string]string
}

func newExecutionContext(runID string, wf store.Workflow, triggered time.Time, topicOverride string) *ExecutionContext {
	return &ExecutionContext{
		RunID:         runID,
		Workflow:      wf,
		TriggeredAt:   triggered,
		TopicOverride: topicOverride,
		Columns:       make(map[string]string),
	}
}

// Scope exposes the state references resolve against.
func (ec *ExecutionContext) Scope() refs.Scope {
	return refs.Scope{
		Outputs:       ec.AllOutputs,
		CustomTopic:   ec.Workflow.CustomTopic,
		TopicOverride: ec.TopicOverride,
	}
}

// Append records the output of the next step. Callers append exactly once
// per step, nil included.
func (ec *ExecutionContext) Append(out *refs.Output) {
	ec.AllOutputs = append(ec.AllOutputs, out)
}

// Record writes the input/output column pair of the step at the given
// 1-based index.
func (ec *ExecutionContext) Record(index int, input, output string) {
	in, out := ColumnKeys(index)
	ec.Columns[in] = input
	ec.Columns[out] = output
}

// TitleSource returns the text a T<n> suffix points at, or "" when ref is
// zero or unresolved.
func (ec *ExecutionContext) TitleSource(ref int) string {
	if ref <= 0 {
		return ""
	}
	text, _ := refs.Response(ec.AllOutputs, ref)
	return text
}

// ColumnKeys returns the output record column names of the step at the
// given 1-based index.
func ColumnKeys(index int) (string, string) {
	i := index - 1
	return fmt.Sprintf("Output%d", 2*i+1), fmt.Sprintf("Output%d", 2*i+2)
}

func (ec *ExecutionContext) outputRecord(status store.RunStatus) store.OutputRecord {
	columns := make(map[string]string, len(ec.Columns))
	for k, v := range ec.Columns {
		columns[k] = v
	}
	return store.OutputRecord{
		RunID:       ec.RunID,
		WorkflowID:  ec.Workflow.ID,
		TriggeredAt: ec.TriggeredAt,
		Status:      status,
		Columns:     columns,
	}
}

func (ec *ExecutionContext) title() string {
	return strings.TrimSpace(ec.Workflow.Title)
}
