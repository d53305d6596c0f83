package llm

import (
	"context"
	"strings"
)

// Search context sizes accepted by web-search capable backends.
const (
	SearchContextMedium = "medium"
	SearchContextLow    = "low"
)

const defaultMaxOutputTokens = 4000

const webSearchPreamble = "Please answer concisely. Use at most 2 recent, credible sources. " +
	"Focus on 3-5 key points. Keep output under ~300 words. " +
	"Stop searching after the first high-quality results.\n\nRequest: "

// Request is one text-generation call.
type Request struct {
	Prompt          string
	Model           string
	WebSearch       bool
	MaxOutputTokens int
	// SearchContext narrows web-search scope; empty means medium.
	SearchContext string
}

// Generator produces text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Backend is one provider family behind the router.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Provider names used in logs and metrics.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
	ProviderGemini    = "gemini"
)

// IsDeepResearch reports whether model is a long-running research model.
func IsDeepResearch(model string) bool {
	return strings.Contains(strings.ToLower(model), "deep-research")
}

// WithWebSearchPreamble prefixes prompt with the concise-answer instruction
// used for every web-search request.
func WithWebSearchPreamble(prompt string) string {
	return webSearchPreamble + prompt
}

func searchContext(req Request) string {
	if strings.TrimSpace(req.SearchContext) == "" {
		return SearchContextMedium
	}
	return req.SearchContext
}
