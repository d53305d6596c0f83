package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"podflow/internal/logging"
	"podflow/internal/services"
	"podflow/internal/services/llm"
	"podflow/internal/store"
)

// GeminiModels is used when no Gemini lister is configured.
var GeminiModels = []string{
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
}

// openAISkipMarkers exclude ids that are not text chat models.
var openAISkipMarkers = []string{
	"vision", "audio", "embedding", "tts", "whisper", "dall-e",
	"gpt-image", "text-embedding", "omni-moderation", "codex",
	"transcribe", "realtime-preview",
}

// ModelLister lists live model ids for one provider.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// ModelStore reads and rewrites the model catalog.
type ModelStore interface {
	Models(ctx context.Context) ([]store.Model, error)
	ReplaceModels(ctx context.Context, models []store.Model) error
}

// LiveModel is one model currently offered by a provider.
type LiveModel struct {
	Name      string
	Provider  string
	WebSearch bool
}

// MergeResult summarizes a catalog merge.
type MergeResult struct {
	Models            []store.Model
	Added             int
	DeprecatedChanged int
}

// Message renders the summary recorded as the step's output.
func (r MergeResult) Message() string {
	return fmt.Sprintf("Updated models with %d models (%d new models added, %d deprecated status updated).",
		len(r.Models), r.Added, r.DeprecatedChanged)
}

// ModelRefresher merges live provider listings into the model catalog.
type ModelRefresher struct {
	openAI ModelLister
	gemini ModelLister
	store  ModelStore
	logger *slog.Logger
}

// NewModelRefresher builds a refresher. Either lister may be nil: a nil
// OpenAI lister contributes no models and a nil Gemini lister falls back to
// GeminiModels.
func NewModelRefresher(openAI, gemini ModelLister, st ModelStore, logger *slog.Logger) *ModelRefresher {
	return &ModelRefresher{
		openAI: openAI,
		gemini: gemini,
		store:  st,
		logger: logging.NewComponentLogger(logger, "catalog"),
	}
}

// Live gathers the current model list from every provider.
func (m *ModelRefresher) Live(ctx context.Context) ([]LiveModel, error) {
	var live []LiveModel
	if m.openAI != nil {
		ids, err := m.openAI.ListModels(ctx)
		if err != nil {
			return nil, services.Wrap(services.ErrProviderFatal, "catalog", "list models", "openai", err)
		}
		for _, id := range ids {
			if !isOpenAIChatModel(id) {
				continue
			}
			live = append(live, LiveModel{Name: id, Provider: llm.ProviderOpenAI, WebSearch: openAIWebSearch(id)})
		}
	}
	for _, id := range llm.AnthropicModels {
		live = append(live, LiveModel{Name: id, Provider: llm.ProviderAnthropic, WebSearch: llm.AnthropicSupportsWebSearch(id)})
	}
	geminiIDs := GeminiModels
	if m.gemini != nil {
		ids, err := m.gemini.ListModels(ctx)
		if err != nil {
			return nil, services.Wrap(services.ErrProviderFatal, "catalog", "list models", "gemini", err)
		}
		geminiIDs = ids
	}
	for _, id := range geminiIDs {
		live = append(live, LiveModel{Name: id, Provider: llm.ProviderGemini})
	}
	return live, nil
}

// Refresh merges live models into the stored catalog and returns the
// summary message.
func (m *ModelRefresher) Refresh(ctx context.Context) (string, error) {
	live, err := m.Live(ctx)
	if err != nil {
		return "", err
	}
	existing, err := m.store.Models(ctx)
	if err != nil {
		return "", services.Wrap(services.ErrProviderFatal, "catalog", "read models", "load model catalog", err)
	}
	result := MergeModels(existing, live)
	if err := m.store.ReplaceModels(ctx, result.Models); err != nil {
		return "", services.Wrap(services.ErrProviderFatal, "catalog", "store models", "replace model catalog", err)
	}
	logging.WithContext(ctx, m.logger).Info("model catalog refreshed",
		logging.String(logging.FieldEventType, "models_refreshed"),
		logging.Int("model_count", len(result.Models)),
		logging.Int("models_added", result.Added),
		logging.Int("deprecated_changed", result.DeprecatedChanged),
	)
	return result.Message(), nil
}

// MergeModels keeps every existing row (ids and order preserved), marks rows
// whose name is no longer live as deprecated and live ones as current, then
// appends a baseline row for each new live model plus a web-search row when
// the model supports it.
func MergeModels(existing []store.Model, live []LiveModel) MergeResult {
	liveNames := make(map[string]bool, len(live))
	for _, lm := range live {
		liveNames[lm.Name] = true
	}

	rows := append([]store.Model(nil), existing...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	var result MergeResult
	type pair struct {
		name      string
		webSearch bool
	}
	seen := make(map[pair]bool, len(rows))
	var nextID int64
	for i := range rows {
		name := strings.TrimSpace(rows[i].Name)
		deprecated := !liveNames[name]
		if deprecated != rows[i].Deprecated {
			result.DeprecatedChanged++
		}
		rows[i].Deprecated = deprecated
		seen[pair{name, rows[i].SupportsWebSearch}] = true
		if rows[i].ID > nextID {
			nextID = rows[i].ID
		}
	}
	nextID++

	for _, lm := range live {
		if !seen[pair{lm.Name, false}] {
			rows = append(rows, store.Model{ID: nextID, Name: lm.Name})
			seen[pair{lm.Name, false}] = true
			nextID++
			result.Added++
		}
		if lm.WebSearch && !seen[pair{lm.Name, true}] {
			rows = append(rows, store.Model{ID: nextID, Name: lm.Name, SupportsWebSearch: true})
			seen[pair{lm.Name, true}] = true
			nextID++
			result.Added++
		}
	}
	result.Models = rows
	return result
}

func isOpenAIChatModel(id string) bool {
	lower := strings.ToLower(id)
	for _, marker := range openAISkipMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

func openAIWebSearch(id string) bool {
	lower := strings.ToLower(id)
	return strings.Contains(lower, "search-preview") ||
		strings.HasPrefix(lower, "gpt-5") ||
		strings.HasPrefix(lower, "gpt-4o")
}
