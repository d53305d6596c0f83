package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed is the YAML representation of the configuration tables.
type Seed struct {
	Workflows []struct {
		ID           int64  `yaml:"id"`
		Title        string `yaml:"title"`
		Code         string `yaml:"code"`
		Active       *bool  `yaml:"active"`
		CustomTopic  string `yaml:"custom_topic"`
		DefaultModel string `yaml:"default_model"`
	} `yaml:"workflows"`
	Prompts []struct {
		ID          int64  `yaml:"id"`
		Text        string `yaml:"text"`
		Description string `yaml:"description"`
	} `yaml:"prompts"`
	Models []struct {
		ID         int64  `yaml:"id"`
		Name       string `yaml:"name"`
		Default    bool   `yaml:"default"`
		WebSearch  bool   `yaml:"web_search"`
		Deprecated bool   `yaml:"deprecated"`
	} `yaml:"models"`
	Locations []struct {
		ID          int64  `yaml:"id"`
		Description string `yaml:"description"`
		Kind        string `yaml:"kind"`
		Path        string `yaml:"path"`
		Latest      bool   `yaml:"latest"`
	} `yaml:"locations"`
	VoiceProfiles []struct {
		ID              int64   `yaml:"id"`
		VoiceName       string  `yaml:"voice_name"`
		VoiceID         string  `yaml:"voice_id"`
		ModelID         string  `yaml:"model_id"`
		Stability       float64 `yaml:"stability"`
		SimilarityBoost float64 `yaml:"similarity_boost"`
		Style           float64 `yaml:"style"`
		Speed           float64 `yaml:"speed"`
	} `yaml:"voice_profiles"`
}

// ImportSummary counts the rows written by Import.
type ImportSummary struct {
	Workflows     int
	Prompts       int
	Models        int
	Locations     int
	VoiceProfiles int
}

// LoadSeed reads and decodes a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes YAML seed data.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for _, wf := range seed.Workflows {
		if wf.ID <= 0 || strings.TrimSpace(wf.Code) == "" {
			return nil, fmt.Errorf("parse seed: workflow %d needs a positive id and a code", wf.ID)
		}
	}
	for _, loc := range seed.Locations {
		switch LocationKind(loc.Kind) {
		case LocationFile, LocationFolder, LocationAudio:
		default:
			return nil, fmt.Errorf("parse seed: location %d has unknown kind %q", loc.ID, loc.Kind)
		}
	}
	return &seed, nil
}

// Import upserts every row of seed by id in a single transaction.
func (s *Store) Import(ctx context.Context, seed *Seed) (ImportSummary, error) {
	var summary ImportSummary
	if seed == nil {
		return summary, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, wf := range seed.Workflows {
		active := wf.Active == nil || *wf.Active
		if err := upsert(ctx, tx, `
INSERT INTO workflows (id, title, code, active, custom_topic, default_model) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET title = excluded.title, code = excluded.code, active = excluded.active,
    custom_topic = excluded.custom_topic, default_model = excluded.default_model`,
			wf.ID, wf.Title, strings.TrimSpace(wf.Code), boolToInt(active), nullableString(wf.CustomTopic), nullableString(wf.DefaultModel)); err != nil {
			return summary, fmt.Errorf("import workflow %d: %w", wf.ID, err)
		}
		summary.Workflows++
	}
	for _, p := range seed.Prompts {
		if err := upsert(ctx, tx, `
INSERT INTO prompts (id, text, description) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET text = excluded.text, description = excluded.description`,
			p.ID, p.Text, nullableString(p.Description)); err != nil {
			return summary, fmt.Errorf("import prompt %d: %w", p.ID, err)
		}
		summary.Prompts++
	}
	for _, m := range seed.Models {
		if err := upsert(ctx, tx, `
INSERT INTO models (id, name, is_default, supports_web_search, deprecated) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, is_default = excluded.is_default,
    supports_web_search = excluded.supports_web_search, deprecated = excluded.deprecated`,
			m.ID, m.Name, boolToInt(m.Default), boolToInt(m.WebSearch), boolToInt(m.Deprecated)); err != nil {
			return summary, fmt.Errorf("import model %d: %w", m.ID, err)
		}
		summary.Models++
	}
	for _, loc := range seed.Locations {
		if err := upsert(ctx, tx, `
INSERT INTO locations (id, description, kind, path, latest) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET description = excluded.description, kind = excluded.kind,
    path = excluded.path, latest = excluded.latest`,
			loc.ID, nullableString(loc.Description), loc.Kind, loc.Path, boolToInt(loc.Latest)); err != nil {
			return summary, fmt.Errorf("import location %d: %w", loc.ID, err)
		}
		summary.Locations++
	}
	for _, vp := range seed.VoiceProfiles {
		if err := upsert(ctx, tx, `
INSERT INTO voice_profiles (id, voice_name, voice_id, model_id, stability, similarity_boost, style, speed)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET voice_name = excluded.voice_name, voice_id = excluded.voice_id,
    model_id = excluded.model_id, stability = excluded.stability, similarity_boost = excluded.similarity_boost,
    style = excluded.style, speed = excluded.speed`,
			vp.ID, vp.VoiceName, vp.VoiceID, nullableString(vp.ModelID),
			nullableFloat(vp.Stability), nullableFloat(vp.SimilarityBoost), nullableFloat(vp.Style), nullableFloat(vp.Speed)); err != nil {
			return summary, fmt.Errorf("import voice profile %d: %w", vp.ID, err)
		}
		summary.VoiceProfiles++
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("commit import: %w", err)
	}
	return summary, nil
}

func upsert(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
