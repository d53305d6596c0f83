package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"podflow/internal/logging"
	"podflow/internal/services"
	"podflow/internal/store"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Show</title>
<item><title>Episode Two &amp;amp; More</title><description><![CDATA[<p>Second episode.</p> Help support the podcast by using our affiliate links: x]]></description></item>
<item><title>Episode One</title><description>&lt;b&gt;First&lt;/b&gt; episode.</description></item>
</channel></rss>`

type memoryEpisodes struct {
	saved []store.Episode
}

func (m *memoryEpisodes) ReplaceEpisodes(_ context.Context, eps []store.Episode) error {
	m.saved = eps
	return nil
}

func TestFeedRefreshReversesAndCleans(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	st := &memoryEpisodes{}
	refresher := NewFeedRefresher(srv.URL+"/feed.xml", 5*time.Second, st, logging.NewNop())
	msg, err := refresher.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if msg != "Updated posted episodes with 2 episodes." {
		t.Fatalf("unexpected message %q", msg)
	}
	if len(st.saved) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(st.saved))
	}
	first, second := st.saved[0], st.saved[1]
	if first.ID != 1 || first.Title != "Episode One" || first.Description != "First episode." {
		t.Fatalf("unexpected first episode %+v", first)
	}
	if second.ID != 2 || second.Title != "Episode Two & More" {
		t.Fatalf("unexpected second episode %+v", second)
	}
	if second.ShortDescription != "Second episode." {
		t.Fatalf("expected short description cut at marker, got %q", second.ShortDescription)
	}
}

func TestFeedRefreshReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	refresher := NewFeedRefresher(srv.URL, time.Second, &memoryEpisodes{}, logging.NewNop())
	_, err := refresher.Refresh(context.Background())
	if !errors.Is(err, services.ErrProviderFatal) {
		t.Fatalf("expected ErrProviderFatal, got %v", err)
	}
}

func TestFeedRefreshRequiresURL(t *testing.T) {
	refresher := NewFeedRefresher("", time.Second, &memoryEpisodes{}, logging.NewNop())
	if _, err := refresher.Refresh(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestMergeModels(t *testing.T) {
	existing := []store.Model{
		{ID: 2, Name: "gpt-4o"},
		{ID: 1, Name: "gpt-3", Deprecated: false},
		{ID: 5, Name: "old-model", Deprecated: true},
	}
	live := []LiveModel{
		{Name: "gpt-4o", WebSearch: true},
		{Name: "gemini-2.0-flash"},
	}
	result := MergeModels(existing, live)

	if result.DeprecatedChanged != 1 {
		t.Fatalf("expected 1 deprecated change, got %d", result.DeprecatedChanged)
	}
	if result.Added != 2 {
		t.Fatalf("expected 2 added rows, got %d", result.Added)
	}
	if len(result.Models) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(result.Models))
	}
	if result.Models[0].ID != 1 || !result.Models[0].Deprecated {
		t.Fatalf("expected gpt-3 first and deprecated, got %+v", result.Models[0])
	}
	added := result.Models[3:]
	if added[0].ID != 6 || added[0].Name != "gpt-4o" || !added[0].SupportsWebSearch {
		t.Fatalf("expected web-search row for gpt-4o, got %+v", added[0])
	}
	if added[1].ID != 7 || added[1].Name != "gemini-2.0-flash" || added[1].SupportsWebSearch {
		t.Fatalf("expected baseline gemini row, got %+v", added[1])
	}
	if !strings.HasPrefix(result.Message(), "Updated models with 5 models (2 new models added, 1 deprecated status updated)") {
		t.Fatalf("unexpected message %q", result.Message())
	}
}

type staticLister []string

func (s staticLister) ListModels(context.Context) ([]string, error) { return s, nil }

type memoryModels struct {
	models []store.Model
}

func (m *memoryModels) Models(context.Context) ([]store.Model, error) { return m.models, nil }

func (m *memoryModels) ReplaceModels(_ context.Context, models []store.Model) error {
	m.models = models
	return nil
}

func TestModelRefresherFiltersOpenAIAndUsesFixedLists(t *testing.T) {
	st := &memoryModels{}
	refresher := NewModelRefresher(staticLister{"gpt-4o-mini", "whisper-1", "text-embedding-3-small", "o3"}, nil, st, logging.NewNop())
	live, err := refresher.Live(context.Background())
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	names := map[string]LiveModel{}
	for _, lm := range live {
		names[lm.Name] = lm
	}
	if _, ok := names["whisper-1"]; ok {
		t.Fatal("expected whisper to be filtered")
	}
	if !names["gpt-4o-mini"].WebSearch || names["o3"].WebSearch {
		t.Fatalf("unexpected web-search flags: %+v %+v", names["gpt-4o-mini"], names["o3"])
	}
	if !names["claude-sonnet-4-20250514"].WebSearch || names["claude-2.1"].WebSearch {
		t.Fatal("unexpected anthropic web-search flags")
	}
	if _, ok := names["gemini-2.5-pro"]; !ok {
		t.Fatal("expected fixed gemini list")
	}

	msg, err := refresher.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !strings.Contains(msg, "new models added") || len(st.models) == 0 {
		t.Fatalf("unexpected refresh result %q (%d models)", msg, len(st.models))
	}
}
