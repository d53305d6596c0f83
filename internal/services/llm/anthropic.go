package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const (
	anthropicVersion        = "2023-06-01"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicTokens  = 4000
)

// anthropicWebSearchModels accept the web_search tool.
var anthropicWebSearchModels = map[string]bool{
	"claude-3-7-sonnet-20250219": true,
	"claude-3-5-sonnet-20241022": true,
	"claude-3-5-haiku":           true,
	"claude-opus-4-20250514":     true,
	"claude-sonnet-4-20250514":   true,
}

// AnthropicModels is the fixed Claude catalog; the Messages API has no
// listing endpoint the catalog refresh relies on.
var AnthropicModels = []string{
	"claude-opus-4-20250514",
	"claude-sonnet-4-20250514",
	"claude-3-7-sonnet-20250219",
	"claude-3-5-sonnet-20241022",
	"claude-3-5-sonnet-20240620",
	"claude-3-5-sonnet",
	"claude-3-5-haiku",
	"claude-3-opus-20240229",
	"claude-3-sonnet-20240229",
	"claude-3-haiku-20240307",
	"claude-instant-1.2",
	"claude-2.1",
	"claude-2.0",
}

// AnthropicSupportsWebSearch reports whether model accepts the web_search tool.
func AnthropicSupportsWebSearch(model string) bool {
	return anthropicWebSearchModels[model]
}

// Anthropic calls the Claude Messages API.
type Anthropic struct {
	transport *jsonTransport
	baseURL   string
}

// NewAnthropic builds the Messages API backend.
func NewAnthropic(apiKey, baseURL string, httpClient *http.Client) *Anthropic {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &Anthropic{
		baseURL: baseURL,
		transport: &jsonTransport{
			provider:   ProviderAnthropic,
			httpClient: httpClient,
			headers: map[string]string{
				"x-api-key":         strings.TrimSpace(apiKey),
				"anthropic-version": anthropicVersion,
			},
		},
	}
}

// Name implements Backend.
func (a *Anthropic) Name() string { return ProviderAnthropic }

type messagesRequest struct {
	Model     string            `json:"model"`
	MaxTokens int               `json:"max_tokens"`
	Messages  []messagesMessage `json:"messages"`
	Tools     []messagesTool    `json:"tools,omitempty"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesTool struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Generate implements Backend. Text blocks are joined with blank lines.
func (a *Anthropic) Generate(ctx context.Context, req Request) (string, error) {
	payload := messagesRequest{
		Model:     req.Model,
		MaxTokens: req.MaxOutputTokens,
		Messages:  []messagesMessage{{Role: "user", Content: req.Prompt}},
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = defaultAnthropicTokens
	}
	if req.WebSearch && AnthropicSupportsWebSearch(req.Model) {
		payload.Tools = []messagesTool{{Type: "web_search_20250305", Name: "web_search"}}
	}
	var resp messagesResponse
	if err := a.transport.post(ctx, a.baseURL+"/v1/messages", payload, &resp); err != nil {
		return "", err
	}
	blocks := make([]string, 0, len(resp.Content))
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		if text := strings.TrimSpace(block.Text); text != "" {
			blocks = append(blocks, text)
		}
	}
	if len(blocks) == 0 {
		return "", errors.New("anthropic messages: no text content")
	}
	return strings.Join(blocks, "\n\n"), nil
}
