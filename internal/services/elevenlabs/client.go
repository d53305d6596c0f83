// Package elevenlabs synthesizes speech with the ElevenLabs REST API
// (voice provider family "E").
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"podflow/internal/services"
	"podflow/internal/speech"
	"podflow/internal/stage"
)

const (
	providerName          = "elevenlabs"
	defaultBaseURL        = "https://api.elevenlabs.io"
	defaultModel          = "eleven_multilingual_v2"
	defaultTimeout        = 120 * time.Second
	defaultMaxChunkChars  = 2500
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// Default voice settings applied when a profile leaves a value unset.
const (
	DefaultStability       = 0.39
	DefaultSimilarityBoost = 0.7
	DefaultStyle           = 0.5
	DefaultSpeed           = 1.06
)

// Config captures the settings needed to talk to ElevenLabs.
type Config struct {
	APIKey         string
	BaseURL        string
	DefaultModel   string
	TimeoutSeconds int
	MaxChunkChars  int
}

// Client implements speech.Synthesizer against ElevenLabs.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleeper        func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryBackoff overrides retry attempts and delays.
func WithRetryBackoff(attempts int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryAttempts = attempts
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// New builds an ElevenLabs client.
func New(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.DefaultModel) == "" {
		cfg.DefaultModel = defaultModel
	}
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = defaultMaxChunkChars
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg:            cfg,
		httpClient:     &http.Client{Timeout: timeout},
		retryAttempts:  defaultRetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
		sleeper:        sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements speech.Synthesizer.
func (c *Client) Name() string { return providerName }

// MaxChunkChars implements speech.Synthesizer.
func (c *Client) MaxChunkChars() int { return c.cfg.MaxChunkChars }

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	Speed           float64 `json:"speed"`
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("elevenlabs: http %d: %s", e.StatusCode, body)
}

// Synthesize implements speech.Synthesizer. voice.Voice is the ElevenLabs
// voice id.
func (c *Client) Synthesize(ctx context.Context, text string, voice speech.VoiceParams) ([]byte, error) {
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, providerName, "synthesize", "elevenlabs api key not configured", nil)
	}
	voiceID := strings.TrimSpace(voice.Voice)
	if voiceID == "" {
		return nil, services.Wrap(services.ErrValidation, providerName, "synthesize", "voice id is empty", nil)
	}
	payload := synthesisRequest{
		Text:          text,
		ModelID:       firstNonEmpty(voice.Model, c.cfg.DefaultModel),
		VoiceSettings: settingsFor(voice),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode body: %w", err)
	}
	endpoint := c.cfg.BaseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID)

	var lastErr error
	attempts := c.retryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		audio, err := c.post(ctx, endpoint, encoded)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if attempt == attempts || !retryable(err) || ctx.Err() != nil {
			break
		}
		if err := c.sleeper(ctx, c.backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}
	return nil, classify(lastErr)
}

// HealthCheck reports whether an API key is configured.
func (c *Client) HealthCheck(context.Context) stage.Health {
	if c.cfg.APIKey == "" {
		return stage.Unhealthy("speech:elevenlabs", "elevenlabs.api_key not configured")
	}
	return stage.Healthy("speech:elevenlabs")
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: new request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: http error: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if len(data) == 0 {
		return nil, errors.New("elevenlabs: empty audio response")
	}
	return data, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.retryMaxDelay {
			return c.retryMaxDelay
		}
	}
	if delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return delay
}

func settingsFor(voice speech.VoiceParams) voiceSettings {
	return voiceSettings{
		Stability:       orDefault(voice.Stability, DefaultStability),
		SimilarityBoost: orDefault(voice.SimilarityBoost, DefaultSimilarityBoost),
		Style:           orDefault(voice.Style, DefaultStyle),
		Speed:           orDefault(voice.Speed, DefaultSpeed),
	}
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusRequestTimeout ||
			se.StatusCode == http.StatusTooManyRequests ||
			se.StatusCode >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled)
}

func classify(err error) error {
	var se *statusError
	if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
		return services.Wrap(services.ErrProviderFatal, providerName, "synthesize", "rate limited after retries", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, providerName, "synthesize", "request timed out", err)
	}
	return services.Wrap(services.ErrProviderFatal, providerName, "synthesize", "speech synthesis failed", err)
}

func orDefault(value, fallback float64) float64 {
	if value == 0 {
		return fallback
	}
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
