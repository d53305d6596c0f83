package llm

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAI generates text with OpenAI chat completions, switching to the
// Responses API with the web_search tool for web-search requests.
type OpenAI struct {
	client    *openai.Client
	responses *jsonTransport
	baseURL   string
}

// NewOpenAI builds the OpenAI backend. baseURL may be empty.
func NewOpenAI(apiKey, baseURL string, httpClient *http.Client) *OpenAI {
	apiKey = strings.TrimSpace(apiKey)
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = httpClient
	return &OpenAI{
		client:  openai.NewClientWithConfig(cfg),
		baseURL: baseURL,
		responses: &jsonTransport{
			provider:   ProviderOpenAI,
			httpClient: httpClient,
			headers:    map[string]string{"Authorization": "Bearer " + apiKey},
		},
	}
}

// Name implements Backend.
func (o *OpenAI) Name() string { return ProviderOpenAI }

// Generate implements Backend.
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	if req.WebSearch && !strings.HasSuffix(req.Model, "-search-preview") {
		return o.respond(ctx, req)
	}
	return o.chat(ctx, req)
}

func (o *OpenAI) chat(ctx context.Context, req Request) (string, error) {
	payload := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.MaxOutputTokens > 0 {
		payload.MaxCompletionTokens = req.MaxOutputTokens
	}
	resp, err := o.client.CreateChatCompletion(ctx, payload)
	if err != nil {
		return "", err
	}
	for _, choice := range resp.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, nil
		}
	}
	return "", errors.New("openai chat: empty choices")
}

type responsesRequest struct {
	Model           string              `json:"model"`
	Tools           []responsesTool     `json:"tools"`
	Input           []responsesInput    `json:"input"`
	Text            responsesTextConfig `json:"text"`
	MaxOutputTokens int                 `json:"max_output_tokens,omitempty"`
	Reasoning       *responsesReasoning `json:"reasoning,omitempty"`
}

type responsesTool struct {
	Type              string `json:"type"`
	SearchContextSize string `json:"search_context_size,omitempty"`
}

type responsesInput struct {
	Role    string             `json:"role"`
	Content []responsesContent `json:"content"`
}

type responsesContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responsesTextConfig struct {
	Format    map[string]string `json:"format"`
	Verbosity string            `json:"verbosity,omitempty"`
}

type responsesReasoning struct {
	Effort string `json:"effort"`
}

type responsesResponse struct {
	Output []struct {
		Type    string             `json:"type"`
		Role    string             `json:"role"`
		Content []responsesContent `json:"content"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAI) respond(ctx context.Context, req Request) (string, error) {
	lower := strings.ToLower(req.Model)
	payload := responsesRequest{
		Model: req.Model,
		Tools: []responsesTool{{Type: "web_search", SearchContextSize: searchContext(req)}},
		Input: []responsesInput{{
			Role:    "user",
			Content: []responsesContent{{Type: "input_text", Text: req.Prompt}},
		}},
		Text:            responsesTextConfig{Format: map[string]string{"type": "text"}},
		MaxOutputTokens: req.MaxOutputTokens,
	}
	switch {
	case strings.HasPrefix(lower, "gpt-5"):
		payload.Text.Verbosity = "low"
		payload.Reasoning = &responsesReasoning{Effort: "low"}
	case strings.HasPrefix(lower, "gpt-4o"):
		payload.Text.Verbosity = "medium"
	}

	var resp responsesResponse
	if err := o.responses.post(ctx, o.baseURL+"/responses", payload, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", errors.New("openai responses: " + strings.TrimSpace(resp.Error.Message))
	}
	for _, item := range resp.Output {
		if item.Role != "assistant" {
			continue
		}
		for _, content := range item.Content {
			if content.Type == "output_text" && strings.TrimSpace(content.Text) != "" {
				return strings.TrimSpace(content.Text), nil
			}
		}
	}
	return "", errors.New("openai responses: no output_text in response")
}

// ListModels returns the ids of every model visible to the API key, sorted.
func (o *OpenAI) ListModels(ctx context.Context) ([]string, error) {
	list, err := o.client.ListModels(ctx)
	if err != nil {
		return nil, classify(ProviderOpenAI, "list", err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}
