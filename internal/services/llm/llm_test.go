package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"podflow/internal/logging"
	"podflow/internal/services"
)

type fakeBackend struct {
	name  string
	calls []Request
	reply func(Request) (string, error)
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Generate(_ context.Context, req Request) (string, error) {
	f.calls = append(f.calls, req)
	if f.reply != nil {
		return f.reply(req)
	}
	return "ok from " + f.name, nil
}

func newTestRouter(openai, anthropic, gemini Backend) *Router {
	return NewRouter(Backends{OpenAI: openai, Anthropic: anthropic, Gemini: gemini},
		Timeouts{Interactive: time.Second, WebSearch: time.Second, DeepResearch: time.Second},
		4000, logging.NewNop())
}

func TestRouterSelectsBackendByPrefix(t *testing.T) {
	oa := &fakeBackend{name: ProviderOpenAI}
	an := &fakeBackend{name: ProviderAnthropic}
	ge := &fakeBackend{name: ProviderGemini}
	router := newTestRouter(oa, an, ge)

	cases := map[string]*fakeBackend{
		"claude-3-5-haiku": an,
		"gemini-2.0-flash": ge,
		"gpt-4o-mini":      oa,
		"o4-mini":          oa,
	}
	for model, want := range cases {
		out, err := router.Generate(context.Background(), Request{Prompt: "hi", Model: model})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", model, err)
		}
		if out != "ok from "+want.name {
			t.Fatalf("%s: routed to wrong backend, got %q", model, out)
		}
	}
}

func TestRouterAppliesWebSearchPreambleAndDisablesForGemini(t *testing.T) {
	oa := &fakeBackend{name: ProviderOpenAI}
	ge := &fakeBackend{name: ProviderGemini}
	router := newTestRouter(oa, nil, ge)

	if _, err := router.Generate(context.Background(), Request{Prompt: "news", Model: "gpt-4o", WebSearch: true}); err != nil {
		t.Fatalf("openai: %v", err)
	}
	if got := oa.calls[0].Prompt; !strings.HasPrefix(got, "Please answer concisely.") || !strings.HasSuffix(got, "Request: news") {
		t.Fatalf("expected preamble, got %q", got)
	}
	if oa.calls[0].MaxOutputTokens != 4000 {
		t.Fatalf("expected default output budget, got %d", oa.calls[0].MaxOutputTokens)
	}

	if _, err := router.Generate(context.Background(), Request{Prompt: "news", Model: "gemini-1.5-pro", WebSearch: true}); err != nil {
		t.Fatalf("gemini: %v", err)
	}
	if ge.calls[0].WebSearch || ge.calls[0].Prompt != "news" {
		t.Fatalf("expected web search disabled for gemini, got %+v", ge.calls[0])
	}
}

func TestRouterMissingBackendIsFatal(t *testing.T) {
	router := newTestRouter(&fakeBackend{name: ProviderOpenAI}, nil, nil)
	_, err := router.Generate(context.Background(), Request{Prompt: "x", Model: "claude-2.1"})
	if !errors.Is(err, services.ErrProviderFatal) {
		t.Fatalf("expected ErrProviderFatal, got %v", err)
	}
}

func TestRouterRepairsMojibake(t *testing.T) {
	oa := &fakeBackend{name: ProviderOpenAI, reply: func(Request) (string, error) { return "Itâ€™s here", nil }}
	router := newTestRouter(oa, nil, nil)
	out, err := router.Generate(context.Background(), Request{Prompt: "x", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "It’s here" {
		t.Fatalf("expected repaired text, got %q", out)
	}
}

func TestRouterClassifiesRateLimits(t *testing.T) {
	oa := &fakeBackend{name: ProviderOpenAI, reply: func(Request) (string, error) {
		return "", errors.New("Rate limit reached. Please try again in 1.5s")
	}}
	router := newTestRouter(oa, nil, nil)
	_, err := router.Generate(context.Background(), Request{Prompt: "x", Model: "gpt-4o"})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	if got := SuggestedWait(err); got != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s wait, got %v", got)
	}
}

func TestTimeoutsFor(t *testing.T) {
	tm := Timeouts{Interactive: 75 * time.Second, WebSearch: 300 * time.Second, DeepResearch: 900 * time.Second}
	if got := tm.For(Request{Model: "gpt-4o"}); got != 75*time.Second {
		t.Fatalf("interactive: %v", got)
	}
	if got := tm.For(Request{Model: "o4-mini-deep-research"}); got != 900*time.Second {
		t.Fatalf("deep research: %v", got)
	}
	if got := tm.For(Request{Model: "o4-mini-deep-research", WebSearch: true}); got != 300*time.Second {
		t.Fatalf("web search: %v", got)
	}
}

func TestIsRateLimited(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("Error 429"), true},
		{errors.New("You exceeded your current quota"), true},
		{errors.New("Too Many Requests"), true},
		{&httpStatusError{Provider: "anthropic", StatusCode: 429, Body: "{}"}, true},
		{&httpStatusError{Provider: "anthropic", StatusCode: 401, Body: "invalid key"}, false},
		{errors.New("model not found"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsRateLimited(tc.err); got != tc.want {
			t.Fatalf("IsRateLimited(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestSuggestedWaitDefaultsToFiveSeconds(t *testing.T) {
	if got := SuggestedWait(errors.New("rate limit")); got != 5*time.Second {
		t.Fatalf("expected 5s default, got %v", got)
	}
	err := fmt.Errorf("wrapped: %w", &httpStatusError{StatusCode: 429, RetryAfter: 2 * time.Second})
	if got := SuggestedWait(err); got != 2*time.Second {
		t.Fatalf("expected Retry-After wait, got %v", got)
	}
}

func TestRetryingGeneratorRetriesOnceWithReducedBudget(t *testing.T) {
	attempts := 0
	var seen []Request
	next := generatorFunc(func(_ context.Context, req Request) (string, error) {
		attempts++
		seen = append(seen, req)
		if attempts == 1 {
			return "", services.Wrap(services.ErrTransient, "llm", "openai", "rate limited", errors.New("try again in 30s"))
		}
		return "second time lucky", nil
	})
	g := NewRetryingGenerator(next, 10*time.Second, logging.NewNop())
	var slept time.Duration
	g.sleep = func(_ context.Context, d time.Duration) error { slept = d; return nil }

	long := strings.Repeat("a", 1500)
	out, err := g.Generate(context.Background(), Request{Prompt: long, Model: "gpt-4o", WebSearch: true, MaxOutputTokens: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "second time lucky" || attempts != 2 {
		t.Fatalf("unexpected result %q after %d attempts", out, attempts)
	}
	if slept != 10*time.Second {
		t.Fatalf("expected wait capped at 10s, got %v", slept)
	}
	retry := seen[1]
	if retry.MaxOutputTokens != 300 {
		t.Fatalf("expected token floor 300, got %d", retry.MaxOutputTokens)
	}
	if retry.SearchContext != SearchContextLow {
		t.Fatalf("expected low search context, got %q", retry.SearchContext)
	}
	if len(retry.Prompt) != 1000 {
		t.Fatalf("expected prompt truncated to 1000, got %d", len(retry.Prompt))
	}
}

func TestRetryingGeneratorSecondFailureIsFatal(t *testing.T) {
	next := generatorFunc(func(context.Context, Request) (string, error) {
		return "", services.Wrap(services.ErrTransient, "llm", "openai", "rate limited", errors.New("429"))
	})
	g := NewRetryingGenerator(next, 0, logging.NewNop())
	g.sleep = func(context.Context, time.Duration) error { return nil }
	_, err := g.Generate(context.Background(), Request{Prompt: "x", Model: "gpt-4o"})
	if !errors.Is(err, services.ErrProviderFatal) {
		t.Fatalf("expected ErrProviderFatal, got %v", err)
	}
	if services.Kind(err) != "provider" {
		t.Fatalf("expected provider kind, got %q", services.Kind(err))
	}
}

func TestRetryingGeneratorPassesFatalThrough(t *testing.T) {
	calls := 0
	next := generatorFunc(func(context.Context, Request) (string, error) {
		calls++
		return "", services.Wrap(services.ErrProviderFatal, "llm", "openai", "bad key", nil)
	})
	g := NewRetryingGenerator(next, time.Second, logging.NewNop())
	if _, err := g.Generate(context.Background(), Request{Prompt: "x", Model: "gpt-4o"}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected no retry for fatal errors, got %d calls", calls)
	}
}

type generatorFunc func(context.Context, Request) (string, error)

func (f generatorFunc) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

func TestOpenAIChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" Hello there "},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	backend := NewOpenAI("sk-test", srv.URL+"/v1", srv.Client())
	out, err := backend.Generate(context.Background(), Request{Prompt: "hi", Model: "gpt-4o-mini", MaxOutputTokens: 100})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "Hello there" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestOpenAIWebSearchUsesResponsesAPI(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = io.WriteString(w, `{"output":[{"type":"web_search_call"},{"type":"message","role":"assistant","content":[{"type":"output_text","text":"Fresh news"}]}]}`)
	}))
	defer srv.Close()

	backend := NewOpenAI("sk-test", srv.URL+"/v1", srv.Client())
	out, err := backend.Generate(context.Background(), Request{Prompt: "news", Model: "gpt-5", WebSearch: true, MaxOutputTokens: 3000})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "Fresh news" {
		t.Fatalf("unexpected output %q", out)
	}
	tools, _ := body["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("expected web_search tool, got %v", body["tools"])
	}
	tool, _ := tools[0].(map[string]any)
	if tool["type"] != "web_search" || tool["search_context_size"] != "medium" {
		t.Fatalf("unexpected tool %v", tool)
	}
	if _, ok := body["reasoning"]; !ok {
		t.Fatal("expected reasoning effort for gpt-5 models")
	}
}

func TestOpenAIResponsesRateLimitKeepsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down"}}`)
	}))
	defer srv.Close()

	backend := NewOpenAI("sk-test", srv.URL, srv.Client())
	_, err := backend.Generate(context.Background(), Request{Prompt: "news", Model: "gpt-4o", WebSearch: true})
	if !IsRateLimited(err) {
		t.Fatalf("expected rate-limited error, got %v", err)
	}
	if SuggestedWait(err) != 3*time.Second {
		t.Fatalf("expected Retry-After 3s, got %v", SuggestedWait(err))
	}
}

func TestAnthropicMessages(t *testing.T) {
	var body messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ak" || r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("missing anthropic headers: %v", r.Header)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"First"},{"type":"server_tool_use"},{"type":"text","text":"Second"}]}`)
	}))
	defer srv.Close()

	backend := NewAnthropic("ak", srv.URL, srv.Client())
	out, err := backend.Generate(context.Background(), Request{Prompt: "hi", Model: "claude-sonnet-4-20250514", WebSearch: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "First\n\nSecond" {
		t.Fatalf("unexpected output %q", out)
	}
	if body.MaxTokens != defaultAnthropicTokens {
		t.Fatalf("expected default max tokens, got %d", body.MaxTokens)
	}
	if len(body.Tools) != 1 || body.Tools[0].Type != "web_search_20250305" {
		t.Fatalf("expected web search tool, got %+v", body.Tools)
	}
}

func TestAnthropicSkipsToolForUnsupportedModel(t *testing.T) {
	var body messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"ok"}]}`)
	}))
	defer srv.Close()

	backend := NewAnthropic("ak", srv.URL, srv.Client())
	if _, err := backend.Generate(context.Background(), Request{Prompt: "hi", Model: "claude-2.1", WebSearch: true}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(body.Tools) != 0 {
		t.Fatalf("expected no tools, got %+v", body.Tools)
	}
}

func TestBedrockModelID(t *testing.T) {
	if got := bedrockModelID("claude-3-haiku-20240307"); got != "anthropic.claude-3-haiku-20240307-v1:0" {
		t.Fatalf("unexpected id %q", got)
	}
	if got := bedrockModelID("anthropic.claude-v2:1"); got != "anthropic.claude-v2:1" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}
