package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(scanner rowScanner) (*Workflow, error) {
	var (
		wf           Workflow
		active       int
		topic, model sql.NullString
	)
	if err := scanner.Scan(&wf.ID, &wf.Title, &wf.Code, &active, &topic, &model); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan workflow: %w", err)
	}
	wf.Active = active != 0
	wf.CustomTopic = topic.String
	wf.DefaultModel = model.String
	return &wf, nil
}

func scanModel(scanner rowScanner) (*Model, error) {
	var (
		m                             Model
		isDefault, search, deprecated int
	)
	if err := scanner.Scan(&m.ID, &m.Name, &isDefault, &search, &deprecated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan model: %w", err)
	}
	m.IsDefault = isDefault != 0
	m.SupportsWebSearch = search != 0
	m.Deprecated = deprecated != 0
	return &m, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value float64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
