// Package googletts synthesizes speech with Google Cloud Text-to-Speech
// Chirp 3 HD voices (voice provider family "GV").
package googletts

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"

	"podflow/internal/services"
	"podflow/internal/speech"
	"podflow/internal/stage"
)

const (
	providerName         = "googletts"
	defaultLanguageCode  = "en-US"
	defaultVoicePrefix   = "en-US-Chirp3-HD-"
	defaultMaxChunkChars = 4000
)

// Config captures the Google Text-to-Speech settings.
type Config struct {
	CredentialsFile string
	LanguageCode    string
	VoicePrefix     string
	MaxChunkChars   int
}

// Client implements speech.Synthesizer against Google Cloud Text-to-Speech.
type Client struct {
	cfg Config
	svc *texttospeech.Service
}

// New creates the Text-to-Speech service. Extra options are appended after
// the credentials option.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.LanguageCode) == "" {
		cfg.LanguageCode = defaultLanguageCode
	}
	if strings.TrimSpace(cfg.VoicePrefix) == "" {
		cfg.VoicePrefix = defaultVoicePrefix
	}
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = defaultMaxChunkChars
	}
	clientOpts := make([]option.ClientOption, 0, len(opts)+1)
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(file))
	}
	clientOpts = append(clientOpts, opts...)
	svc, err := texttospeech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, providerName, "init", "create text-to-speech client", err)
	}
	return &Client{cfg: cfg, svc: svc}, nil
}

// Name implements speech.Synthesizer.
func (c *Client) Name() string { return providerName }

// MaxChunkChars implements speech.Synthesizer.
func (c *Client) MaxChunkChars() int { return c.cfg.MaxChunkChars }

// FullVoiceName expands a short voice name such as "Kore" to the
// language-qualified Chirp 3 HD name.
func (c *Client) FullVoiceName(voice string) string {
	voice = strings.TrimSpace(voice)
	if voice == "" {
		voice = DefaultVoice
	}
	if strings.HasPrefix(voice, c.cfg.VoicePrefix) {
		return voice
	}
	return c.cfg.VoicePrefix + voice
}

// Synthesize implements speech.Synthesizer. voice.Voice is the short voice
// name; tuning fields are ignored.
func (c *Client) Synthesize(ctx context.Context, text string, voice speech.VoiceParams) ([]byte, error) {
	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: c.cfg.LanguageCode,
			Name:         c.FullVoiceName(voice.Voice),
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "MP3"},
	}
	resp, err := c.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, services.Wrap(services.ErrProviderFatal, providerName, "synthesize", "decode audio content", err)
	}
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrProviderFatal, providerName, "synthesize", "empty audio content", nil)
	}
	return audio, nil
}

// HealthCheck lists voices for the configured language.
func (c *Client) HealthCheck(ctx context.Context) stage.Health {
	if _, err := c.svc.Voices.List().LanguageCode(c.cfg.LanguageCode).Context(ctx).Do(); err != nil {
		return stage.Unhealthy("speech:googletts", err.Error())
	}
	return stage.Healthy("speech:googletts")
}

func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return services.Wrap(services.ErrProviderFatal, providerName, "synthesize", "quota exhausted", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, providerName, "synthesize", "request timed out", err)
	}
	return services.Wrap(services.ErrProviderFatal, providerName, "synthesize", "speech synthesis failed", err)
}
