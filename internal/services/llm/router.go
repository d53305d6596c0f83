package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"podflow/internal/config"
	"podflow/internal/logging"
	"podflow/internal/metrics"
	"podflow/internal/services"
	"podflow/internal/stage"
	"podflow/internal/textnorm"
)

// Timeouts bound a single generation call by request class.
type Timeouts struct {
	Interactive  time.Duration
	WebSearch    time.Duration
	DeepResearch time.Duration
}

// For returns the timeout for req. Web search wins over deep research.
func (t Timeouts) For(req Request) time.Duration {
	switch {
	case req.WebSearch:
		return t.WebSearch
	case IsDeepResearch(req.Model):
		return t.DeepResearch
	default:
		return t.Interactive
	}
}

// Backends groups the provider families. A request routed to a nil entry
// fails with ErrProviderFatal.
type Backends struct {
	OpenAI    Backend
	Anthropic Backend
	Gemini    Backend
}

// Router dispatches requests to a backend by model name.
type Router struct {
	backends        Backends
	timeouts        Timeouts
	maxOutputTokens int
	logger          *slog.Logger
}

// NewRouter builds a router over explicit backends.
func NewRouter(backends Backends, timeouts Timeouts, maxOutputTokens int, logger *slog.Logger) *Router {
	return &Router{
		backends:        backends,
		timeouts:        timeouts,
		maxOutputTokens: maxOutputTokens,
		logger:          logging.NewComponentLogger(logger, "llm"),
	}
}

// NewRouterFromConfig wires every backend whose credentials are configured.
func NewRouterFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Router, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "llm", "router", "configuration unavailable", nil)
	}
	httpClient := &http.Client{}
	var backends Backends
	if strings.TrimSpace(cfg.OpenAI.APIKey) != "" {
		backends.OpenAI = NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, httpClient)
	}
	switch cfg.Anthropic.Backend {
	case config.AnthropicBedrock:
		bedrock, err := NewBedrock(ctx, cfg.Anthropic.Region)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "llm", "router", "load aws configuration", err)
		}
		backends.Anthropic = bedrock
	default:
		if strings.TrimSpace(cfg.Anthropic.APIKey) != "" {
			backends.Anthropic = NewAnthropic(cfg.Anthropic.APIKey, cfg.Anthropic.BaseURL, httpClient)
		}
	}
	if strings.TrimSpace(cfg.Gemini.APIKey) != "" {
		backends.Gemini = NewGemini(cfg.Gemini.APIKey)
	}
	timeouts := Timeouts{
		Interactive:  cfg.Generation.InteractiveTimeout(),
		WebSearch:    cfg.Generation.WebSearchTimeout(),
		DeepResearch: cfg.Generation.DeepResearchTimeout(),
	}
	return NewRouter(backends, timeouts, cfg.Generation.MaxOutputTokens, logger), nil
}

// ProviderFor names the provider family that serves model.
func ProviderFor(model string) string {
	lower := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(lower, "claude-"):
		return ProviderAnthropic
	case strings.HasPrefix(lower, "gemini-"):
		return ProviderGemini
	default:
		return ProviderOpenAI
	}
}

// Backend returns the backend serving model, or nil when it is not configured.
func (r *Router) Backend(model string) Backend {
	switch ProviderFor(model) {
	case ProviderAnthropic:
		return r.backends.Anthropic
	case ProviderGemini:
		return r.backends.Gemini
	default:
		return r.backends.OpenAI
	}
}

// Generate implements Generator. The response is passed through the text
// normalization pass before it is returned.
func (r *Router) Generate(ctx context.Context, req Request) (string, error) {
	req.Model = strings.TrimSpace(req.Model)
	if req.Model == "" {
		return "", services.Wrap(services.ErrValidation, "llm", "generate", "model name is empty", nil)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", services.Wrap(services.ErrValidation, "llm", "generate", "prompt is empty", nil)
	}
	backend := r.Backend(req.Model)
	if backend == nil {
		return "", services.Wrap(services.ErrProviderFatal, "llm", "generate",
			fmt.Sprintf("no provider configured for model %q", req.Model), nil)
	}
	if backend.Name() == ProviderGemini || backend.Name() == ProviderBedrock {
		req.WebSearch = false
	}
	if req.MaxOutputTokens <= 0 {
		req.MaxOutputTokens = r.maxOutputTokens
	}
	if req.MaxOutputTokens <= 0 {
		req.MaxOutputTokens = defaultMaxOutputTokens
	}
	if req.WebSearch {
		req.Prompt = WithWebSearchPreamble(req.Prompt)
	}

	timeout := r.timeouts.For(req)
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("generation request",
		logging.String("provider", backend.Name()),
		logging.String("model", req.Model),
		logging.Bool("web_search", req.WebSearch),
		logging.Int("max_output_tokens", req.MaxOutputTokens),
		logging.Duration("timeout", timeout),
		logging.Int("prompt_chars", len([]rune(req.Prompt))),
	)

	start := time.Now()
	text, err := backend.Generate(callCtx, req)
	if err != nil {
		if callCtx.Err() != nil && ctx.Err() == nil && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		wrapped := classify(backend.Name(), req.Model, err)
		metrics.RecordProviderCall(backend.Name(), services.Kind(wrapped))
		return "", wrapped
	}
	metrics.RecordProviderCall(backend.Name(), "ok")

	repaired, changed := textnorm.Repair(text)
	if changed {
		logger.Debug("generation output repaired", logging.String(logging.FieldEventType, "encoding_repaired"))
	}
	logger.Debug("generation complete",
		logging.String("provider", backend.Name()),
		logging.String("model", req.Model),
		logging.Int("response_chars", len([]rune(repaired))),
		logging.Duration("generation_duration", time.Since(start)),
	)
	return repaired, nil
}

// HealthCheck reports which provider families are configured.
func (r *Router) HealthCheck(context.Context) stage.Health {
	var configured []string
	if r.backends.OpenAI != nil {
		configured = append(configured, r.backends.OpenAI.Name())
	}
	if r.backends.Anthropic != nil {
		configured = append(configured, r.backends.Anthropic.Name())
	}
	if r.backends.Gemini != nil {
		configured = append(configured, r.backends.Gemini.Name())
	}
	if len(configured) == 0 {
		return stage.Unhealthy("generation", "no text-generation provider has credentials")
	}
	return stage.Health{Name: "generation", Ready: true, Detail: "providers: " + strings.Join(configured, ", ")}
}
