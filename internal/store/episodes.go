package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecentEpisodes returns up to n episodes ordered by id descending.
func (s *Store) RecentEpisodes(ctx context.Context, n int) ([]Episode, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, short_description, refreshed_at FROM posted_episodes ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		var (
			ep          Episode
			desc, short sql.NullString
			refreshed   string
		)
		if err := rows.Scan(&ep.ID, &ep.Title, &desc, &short, &refreshed); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		ep.Description = desc.String
		ep.ShortDescription = short.String
		if ts, err := parseTimeString(refreshed); err == nil {
			ep.RefreshedAt = ts
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

// ReplaceEpisodes rewrites the posted-episode catalog in one transaction.
func (s *Store) ReplaceEpisodes(ctx context.Context, episodes []Episode) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin episodes tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM posted_episodes`); err != nil {
		return fmt.Errorf("clear episodes: %w", err)
	}
	now := time.Now().UTC()
	for _, ep := range episodes {
		refreshed := ep.RefreshedAt
		if refreshed.IsZero() {
			refreshed = now
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO posted_episodes (id, title, description, short_description, refreshed_at) VALUES (?, ?, ?, ?, ?)`,
			ep.ID, ep.Title, nullableString(ep.Description), nullableString(ep.ShortDescription), nullableTime(&refreshed),
		); err != nil {
			return fmt.Errorf("insert episode %d: %w", ep.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit episodes: %w", err)
	}
	return nil
}
