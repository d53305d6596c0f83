package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SaveOutputRecord inserts or updates the output record for rec.RunID.
func (s *Store) SaveOutputRecord(ctx context.Context, rec OutputRecord) error {
	columns := rec.Columns
	if columns == nil {
		columns = map[string]string{}
	}
	encoded, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("encode output columns: %w", err)
	}
	triggered := rec.TriggeredAt
	if triggered.IsZero() {
		triggered = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO output_records (run_id, workflow_id, triggered_at, status, columns_json)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET status = excluded.status, columns_json = excluded.columns_json`,
		rec.RunID, rec.WorkflowID, nullableTime(&triggered), string(rec.Status), string(encoded))
	if err != nil {
		return fmt.Errorf("save output record: %w", err)
	}
	return nil
}

// OutputRecordFor fetches the output record for runID.
func (s *Store) OutputRecordFor(ctx context.Context, runID string) (*OutputRecord, error) {
	var (
		rec       OutputRecord
		triggered string
		status    string
		encoded   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, workflow_id, triggered_at, status, columns_json FROM output_records WHERE run_id = ?`, runID).
		Scan(&rec.RunID, &rec.WorkflowID, &triggered, &status, &encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get output record: %w", err)
	}
	rec.Status = RunStatus(status)
	if ts, err := parseTimeString(triggered); err == nil {
		rec.TriggeredAt = ts
	}
	if err := json.Unmarshal([]byte(encoded), &rec.Columns); err != nil {
		return nil, fmt.Errorf("decode output columns: %w", err)
	}
	return &rec, nil
}

// RecentOutputRecords lists up to n output records, newest first.
func (s *Store) RecentOutputRecords(ctx context.Context, n int) ([]OutputRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT run_id, workflow_id, triggered_at, status, columns_json
FROM output_records ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("list output records: %w", err)
	}
	defer rows.Close()

	var records []OutputRecord
	for rows.Next() {
		var (
			rec                        OutputRecord
			triggered, status, encoded string
		)
		if err := rows.Scan(&rec.RunID, &rec.WorkflowID, &triggered, &status, &encoded); err != nil {
			return nil, fmt.Errorf("scan output record: %w", err)
		}
		rec.Status = RunStatus(status)
		if ts, err := parseTimeString(triggered); err == nil {
			rec.TriggeredAt = ts
		}
		if err := json.Unmarshal([]byte(encoded), &rec.Columns); err != nil {
			return nil, fmt.Errorf("decode output columns: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AppendStepRecord writes one audit entry and returns its id.
func (s *Store) AppendStepRecord(ctx context.Context, rec StepRecord) (int64, error) {
	recorded := rec.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO step_records (run_id, step_index, recorded_at, workflow_id, code, token, input, output, message, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.StepIndex, nullableTime(&recorded), rec.WorkflowID, rec.Code, rec.Token,
		nullableString(rec.Input), nullableString(rec.Output), nullableString(rec.Message), rec.Status)
	if err != nil {
		return 0, fmt.Errorf("append step record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// StepRecords lists the audit entries of a run in step order.
func (s *Store) StepRecords(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, run_id, step_index, recorded_at, workflow_id, code, token, input, output, message, status
FROM step_records WHERE run_id = ? ORDER BY step_index, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list step records: %w", err)
	}
	defer rows.Close()

	var records []StepRecord
	for rows.Next() {
		var (
			rec                    StepRecord
			recorded               string
			input, output, message sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.StepIndex, &recorded, &rec.WorkflowID, &rec.Code, &rec.Token,
			&input, &output, &message, &rec.Status); err != nil {
			return nil, fmt.Errorf("scan step record: %w", err)
		}
		if ts, err := parseTimeString(recorded); err == nil {
			rec.RecordedAt = ts
		}
		rec.Input = input.String
		rec.Output = output.String
		rec.Message = message.String
		records = append(records, rec)
	}
	return records, rows.Err()
}
