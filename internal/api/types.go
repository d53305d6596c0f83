package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// RunSummary describes a run's output record.
type RunSummary struct {
	RunID       string            `json:"runId"`
	WorkflowID  int64             `json:"workflowId"`
	TriggeredAt string            `json:"triggeredAt,omitempty"`
	Status      string            `json:"status"`
	Columns     map[string]string `json:"columns"`
}

// StepEntry is one audit entry of a run.
type StepEntry struct {
	Index      int    `json:"index"`
	Token      string `json:"token"`
	Status     string `json:"status"`
	Input      string `json:"input,omitempty"`
	Output     string `json:"output,omitempty"`
	Message    string `json:"message,omitempty"`
	RecordedAt string `json:"recordedAt,omitempty"`
}

// RunDetail pairs a run with its audit entries.
type RunDetail struct {
	Run   RunSummary  `json:"run"`
	Steps []StepEntry `json:"steps"`
}

// Workflow describes a configured workflow.
type Workflow struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Code         string `json:"code"`
	Active       bool   `json:"active"`
	CustomTopic  string `json:"customTopic,omitempty"`
	DefaultModel string `json:"defaultModel,omitempty"`
}

// StageHealth mirrors readiness reporting for engine collaborators.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Ready  bool          `json:"ready"`
	Checks []StageHealth `json:"checks"`
}

// RunRequest is the POST /api/v1/runs body. A zero WorkflowID runs every
// active workflow.
type RunRequest struct {
	WorkflowID int64  `json:"workflowId"`
	Topic      string `json:"topic"`
}

// RunAccepted acknowledges a started batch.
type RunAccepted struct {
	Accepted   bool  `json:"accepted"`
	WorkflowID int64 `json:"workflowId,omitempty"`
}

// RunListResponse wraps a collection of runs.
type RunListResponse struct {
	Runs []RunSummary `json:"runs"`
}

// WorkflowListResponse wraps a collection of workflows.
type WorkflowListResponse struct {
	Workflows []Workflow `json:"workflows"`
}

// ErrorResponse carries a failed request's message.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
