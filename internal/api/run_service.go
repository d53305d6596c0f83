package api

import (
	"context"
	"fmt"

	"podflow/internal/store"
)

// RecordReader abstracts the store reads needed for API queries.
type RecordReader interface {
	OutputRecordFor(ctx context.Context, runID string) (*store.OutputRecord, error)
	RecentOutputRecords(ctx context.Context, n int) ([]store.OutputRecord, error)
	StepRecords(ctx context.Context, runID string) ([]store.StepRecord, error)
	Workflows(ctx context.Context, activeOnly bool) ([]store.Workflow, error)
}

// RunService exposes read-only run operations returning API DTOs.
type RunService struct {
	store RecordReader
}

// NewRunService constructs a RunService around the provided reader.
func NewRunService(store RecordReader) *RunService {
	if store == nil {
		return nil
	}
	return &RunService{store: store}
}

// Recent returns up to limit runs, newest first.
func (s *RunService) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	records, err := s.store.RecentOutputRecords(ctx, limit)
	if err != nil {
		return nil, err
	}
	return FromOutputRecords(records), nil
}

// Describe fetches a run and its audit entries. It returns nil when the run
// does not exist.
func (s *RunService) Describe(ctx context.Context, runID string) (*RunDetail, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	rec, err := s.store.OutputRecordFor(ctx, runID)
	if err != nil || rec == nil {
		return nil, err
	}
	steps, err := s.store.StepRecords(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load steps for %s: %w", runID, err)
	}
	return &RunDetail{Run: FromOutputRecord(*rec), Steps: FromStepRecords(steps)}, nil
}

// Workflows lists configured workflows.
func (s *RunService) Workflows(ctx context.Context, activeOnly bool) ([]Workflow, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	workflows, err := s.store.Workflows(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]Workflow, 0, len(workflows))
	for _, wf := range workflows {
		out = append(out, FromWorkflow(wf))
	}
	return out, nil
}
