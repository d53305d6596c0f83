package api

import (
	"sort"
	"time"

	"podflow/internal/stage"
	"podflow/internal/store"
)

// FromOutputRecord converts a store output record.
func FromOutputRecord(rec store.OutputRecord) RunSummary {
	columns := make(map[string]string, len(rec.Columns))
	for k, v := range rec.Columns {
		columns[k] = v
	}
	return RunSummary{
		RunID:       rec.RunID,
		WorkflowID:  rec.WorkflowID,
		TriggeredAt: formatTime(rec.TriggeredAt),
		Status:      string(rec.Status),
		Columns:     columns,
	}
}

// FromOutputRecords converts a list, preserving order.
func FromOutputRecords(records []store.OutputRecord) []RunSummary {
	if len(records) == 0 {
		return []RunSummary{}
	}
	out := make([]RunSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, FromOutputRecord(rec))
	}
	return out
}

// FromStepRecords converts audit entries and orders them by step index.
func FromStepRecords(records []store.StepRecord) []StepEntry {
	out := make([]StepEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, StepEntry{
			Index:      rec.StepIndex,
			Token:      rec.Token,
			Status:     rec.Status,
			Input:      rec.Input,
			Output:     rec.Output,
			Message:    rec.Message,
			RecordedAt: formatTime(rec.RecordedAt),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// FromWorkflow converts a store workflow.
func FromWorkflow(wf store.Workflow) Workflow {
	return Workflow{
		ID:           wf.ID,
		Title:        wf.Title,
		Code:         wf.Code,
		Active:       wf.Active,
		CustomTopic:  wf.CustomTopic,
		DefaultModel: wf.DefaultModel,
	}
}

// FromHealth converts probe results; Ready is true only when every check is.
func FromHealth(results []stage.Health) HealthResponse {
	resp := HealthResponse{Ready: stage.AllReady(results), Checks: make([]StageHealth, 0, len(results))}
	for _, h := range results {
		resp.Checks = append(resp.Checks, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
