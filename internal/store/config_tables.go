package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	workflowColumns = "id, title, code, active, custom_topic, default_model"
	modelColumns    = "id, name, is_default, supports_web_search, deprecated"
	locationColumns = "id, description, kind, path, latest"
	voiceColumns    = "id, voice_name, voice_id, model_id, stability, similarity_boost, style, speed"
)

// Workflows lists workflow definitions ordered by id.
func (s *Store) Workflows(ctx context.Context, activeOnly bool) ([]Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

// Workflow fetches one workflow definition.
func (s *Store) Workflow(ctx context.Context, id int64) (*Workflow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id = ?`, id)
	wf, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return wf, err
}

// Prompt fetches a prompt by id.
func (s *Store) Prompt(ctx context.Context, id int64) (*Prompt, error) {
	var (
		prompt Prompt
		desc   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, text, description FROM prompts WHERE id = ?`, id).
		Scan(&prompt.ID, &prompt.Text, &desc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt: %w", err)
	}
	prompt.Description = desc.String
	return &prompt, nil
}

// Model fetches a model catalog entry by id.
func (s *Store) Model(ctx context.Context, id int64) (*Model, error) {
	return s.queryModel(ctx, `SELECT `+modelColumns+` FROM models WHERE id = ?`, id)
}

// ModelByName returns the first catalog entry with name, preferring rows
// that support web search when webSearch is true.
func (s *Store) ModelByName(ctx context.Context, name string, webSearch bool) (*Model, error) {
	return s.queryModel(ctx,
		`SELECT `+modelColumns+` FROM models WHERE name = ? ORDER BY (supports_web_search = ?) DESC, id LIMIT 1`,
		name, boolToInt(webSearch))
}

// DefaultModel returns the entry flagged as default, if any.
func (s *Store) DefaultModel(ctx context.Context) (*Model, error) {
	return s.queryModel(ctx, `SELECT `+modelColumns+` FROM models WHERE is_default = 1 AND deprecated = 0 ORDER BY id LIMIT 1`)
}

// Models lists the full catalog ordered by id.
func (s *Store) Models(ctx context.Context) ([]Model, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+modelColumns+` FROM models ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var models []Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, *m)
	}
	return models, rows.Err()
}

// ReplaceModels rewrites the model catalog in one transaction.
func (s *Store) ReplaceModels(ctx context.Context, models []Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin models tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM models`); err != nil {
		return fmt.Errorf("clear models: %w", err)
	}
	for _, m := range models {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO models (`+modelColumns+`) VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.Name, boolToInt(m.IsDefault), boolToInt(m.SupportsWebSearch), boolToInt(m.Deprecated),
		); err != nil {
			return fmt.Errorf("insert model %q: %w", m.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit models: %w", err)
	}
	return nil
}

// Location fetches a storage location by id.
func (s *Store) Location(ctx context.Context, id int64) (*Location, error) {
	var (
		loc    Location
		desc   sql.NullString
		kind   string
		latest int
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = ?`, id).
		Scan(&loc.ID, &desc, &kind, &loc.Path, &latest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	loc.Description = desc.String
	loc.Kind = LocationKind(kind)
	loc.Latest = latest != 0
	return &loc, nil
}

// VoiceProfile fetches ElevenLabs voice settings by id.
func (s *Store) VoiceProfile(ctx context.Context, id int64) (*VoiceProfile, error) {
	var (
		vp                                  VoiceProfile
		modelID                             sql.NullString
		stability, similarity, style, speed sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+voiceColumns+` FROM voice_profiles WHERE id = ?`, id).
		Scan(&vp.ID, &vp.VoiceName, &vp.VoiceID, &modelID, &stability, &similarity, &style, &speed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get voice profile: %w", err)
	}
	vp.ModelID = modelID.String
	vp.Stability = stability.Float64
	vp.SimilarityBoost = similarity.Float64
	vp.Style = style.Float64
	vp.Speed = speed.Float64
	return &vp, nil
}

func (s *Store) queryModel(ctx context.Context, query string, args ...any) (*Model, error) {
	m, err := scanModel(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}
