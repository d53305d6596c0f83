package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Gemini generates text with Google's Gemini API. Web search is never
// enabled for Gemini models.
type Gemini struct {
	apiKey string
	opts   []option.ClientOption
}

// NewGemini builds the Gemini backend. Extra options are appended to the
// API-key option when clients are created.
func NewGemini(apiKey string, opts ...option.ClientOption) *Gemini {
	return &Gemini{apiKey: strings.TrimSpace(apiKey), opts: opts}
}

// Name implements Backend.
func (g *Gemini) Name() string { return ProviderGemini }

func (g *Gemini) newClient(ctx context.Context) (*genai.Client, error) {
	if g.apiKey == "" {
		return nil, errors.New("gemini: api key not configured")
	}
	opts := append([]option.ClientOption{option.WithAPIKey(g.apiKey)}, g.opts...)
	return genai.NewClient(ctx, opts...)
}

// Generate implements Backend.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel(req.Model)
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxOutputTokens))
	}
	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("gemini: empty response")
	}
	return out, nil
}

// ListModels returns generateContent-capable model ids without the
// "models/" prefix, sorted.
func (g *Gemini) ListModels(ctx context.Context) ([]string, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	var ids []string
	it := client.ListModels(ctx)
	for {
		info, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify(ProviderGemini, "list", fmt.Errorf("list gemini models: %w", err))
		}
		if !supportsGenerateContent(info.SupportedGenerationMethods) {
			continue
		}
		ids = append(ids, strings.TrimPrefix(info.Name, "models/"))
	}
	sort.Strings(ids)
	return ids, nil
}

func supportsGenerateContent(methods []string) bool {
	for _, m := range methods {
		if m == "generateContent" {
			return true
		}
	}
	return false
}
