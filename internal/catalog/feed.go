package catalog

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"podflow/internal/logging"
	"podflow/internal/services"
	"podflow/internal/store"
	"podflow/internal/textnorm"
)

const shortDescriptionMarker = "Help support"

var tagPattern = regexp.MustCompile(`<.*?>`)

// EpisodeStore persists the posted-episode catalog.
type EpisodeStore interface {
	ReplaceEpisodes(ctx context.Context, episodes []store.Episode) error
}

// FeedRefresher rebuilds the posted-episode catalog from an RSS feed.
type FeedRefresher struct {
	url     string
	timeout time.Duration
	store   EpisodeStore
	logger  *slog.Logger
}

// NewFeedRefresher builds a refresher for feedURL.
func NewFeedRefresher(feedURL string, timeout time.Duration, st EpisodeStore, logger *slog.Logger) *FeedRefresher {
	return &FeedRefresher{
		url:     strings.TrimSpace(feedURL),
		timeout: timeout,
		store:   st,
		logger:  logging.NewComponentLogger(logger, "catalog"),
	}
}

type feedItem struct {
	title       string
	description string
}

// Fetch downloads the feed and returns its episodes, oldest first with ids
// starting at 1.
func (f *FeedRefresher) Fetch(ctx context.Context) ([]store.Episode, error) {
	if f.url == "" {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "fetch feed", "feed.url is not configured", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := colly.NewCollector(colly.AllowURLRevisit())
	if f.timeout > 0 {
		collector.SetRequestTimeout(f.timeout)
	}
	var (
		items    []feedItem
		visitErr error
	)
	collector.OnXML("//item", func(e *colly.XMLElement) {
		items = append(items, feedItem{
			title:       e.ChildText("title"),
			description: e.ChildText("description"),
		})
	})
	collector.OnError(func(resp *colly.Response, err error) {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		visitErr = fmt.Errorf("fetch feed (status %d): %w", status, err)
	})
	if err := collector.Visit(f.url); err != nil && visitErr == nil {
		visitErr = err
	}
	collector.Wait()
	if visitErr != nil {
		return nil, services.Wrap(services.ErrProviderFatal, "catalog", "fetch feed", f.url, visitErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return episodesFromItems(items, time.Now().UTC()), nil
}

// Refresh fetches the feed and replaces the stored catalog. The returned
// message summarizes the update.
func (f *FeedRefresher) Refresh(ctx context.Context) (string, error) {
	episodes, err := f.Fetch(ctx)
	if err != nil {
		return "", err
	}
	if err := f.store.ReplaceEpisodes(ctx, episodes); err != nil {
		return "", services.Wrap(services.ErrProviderFatal, "catalog", "store episodes", "replace posted episodes", err)
	}
	msg := fmt.Sprintf("Updated posted episodes with %d episodes.", len(episodes))
	logging.WithContext(ctx, f.logger).Info("posted episodes refreshed",
		logging.String(logging.FieldEventType, "feed_refreshed"),
		logging.Int("episode_count", len(episodes)),
	)
	return msg, nil
}

// episodesFromItems reverses feed order so the oldest item gets id 1.
func episodesFromItems(items []feedItem, now time.Time) []store.Episode {
	episodes := make([]store.Episode, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		title := textnorm.Normalize(html.UnescapeString(items[i].title))
		description := textnorm.Normalize(stripTags(html.UnescapeString(items[i].description)))
		episodes = append(episodes, store.Episode{
			ID:               int64(len(episodes) + 1),
			Title:            strings.TrimSpace(title),
			Description:      strings.TrimSpace(description),
			ShortDescription: shortDescription(description),
			RefreshedAt:      now,
		})
	}
	return episodes
}

func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

func shortDescription(description string) string {
	if idx := strings.Index(description, shortDescriptionMarker); idx >= 0 {
		description = description[:idx]
	}
	return strings.TrimSpace(description)
}
