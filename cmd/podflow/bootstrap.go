package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"podflow/internal/catalog"
	"podflow/internal/config"
	"podflow/internal/logging"
	"podflow/internal/notifications"
	"podflow/internal/services/elevenlabs"
	"podflow/internal/services/googletts"
	"podflow/internal/services/llm"
	"podflow/internal/speech"
	"podflow/internal/stepcode"
	"podflow/internal/storage"
	"podflow/internal/store"
	"podflow/internal/workflow"
)

// runtime bundles everything a run or the API server needs.
type runtime struct {
	cfg      *config.Config
	store    *store.Store
	engine   *workflow.Engine
	runner   *workflow.Runner
	feed     *catalog.FeedRefresher
	models   *catalog.ModelRefresher
	notifier notifications.Service
	logger   *slog.Logger
}

func (r *runtime) Close() error {
	if r == nil || r.store == nil {
		return nil
	}
	return r.store.Close()
}

// buildRuntime wires the engine's collaborators from cfg. Providers without
// credentials are left out; steps that need them skip or abort when reached.
func buildRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	objects, err := storage.Open(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open object storage: %w", err)
	}
	router, err := llm.NewRouterFromConfig(ctx, cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	generator := llm.NewRetryingGenerator(router, cfg.Generation.RateLimitWaitCap(), logger)

	var cache *speech.Cache
	if cfg.Synthesis.CacheEnabled {
		cache = speech.NewCache(cfg.Synthesis.CacheDir)
	}

	rt := &runtime{
		cfg:      cfg,
		store:    st,
		feed:     catalog.NewFeedRefresher(cfg.Feed.URL, time.Duration(cfg.Feed.TimeoutSeconds)*time.Second, st, logger),
		models:   catalog.NewModelRefresher(openAILister(cfg), geminiLister(cfg), st, logger),
		notifier: notifications.NewService(cfg),
		logger:   logger,
	}
	deps := workflow.Dependencies{
		Store:     st,
		Generator: generator,
		Objects:   objects,
		Narrator:  speech.NewNarrator(cache, logger),
		Voices:    buildVoices(ctx, cfg, logger),
		Feed:      rt.feed,
		Models:    rt.models,
		Notifier:  rt.notifier,
	}
	rt.engine = workflow.NewEngine(cfg, deps, logger)
	rt.runner = workflow.NewRunner(cfg, rt.engine, st, logger)
	return rt, nil
}

func buildVoices(ctx context.Context, cfg *config.Config, logger *slog.Logger) map[stepcode.VoiceFamily]speech.Synthesizer {
	voices := make(map[stepcode.VoiceFamily]speech.Synthesizer)
	if strings.TrimSpace(cfg.ElevenLabs.APIKey) != "" {
		voices[stepcode.FamilyElevenLabs] = elevenlabs.New(elevenlabs.Config{
			APIKey:         cfg.ElevenLabs.APIKey,
			BaseURL:        cfg.ElevenLabs.BaseURL,
			DefaultModel:   cfg.ElevenLabs.DefaultModel,
			TimeoutSeconds: cfg.ElevenLabs.TimeoutSeconds,
			MaxChunkChars:  cfg.ElevenLabs.MaxChunkChars,
		})
	}
	google, err := googletts.New(ctx, googletts.Config{
		CredentialsFile: cfg.GoogleTTS.CredentialsFile,
		LanguageCode:    cfg.GoogleTTS.LanguageCode,
		VoicePrefix:     cfg.GoogleTTS.VoicePrefix,
		MaxChunkChars:   cfg.GoogleTTS.MaxChunkChars,
	})
	if err != nil {
		logging.WarnWithContext(logger, "google text-to-speech unavailable", "speech_provider_unavailable",
			logging.String("provider", "googletts"),
			logging.Error(err),
			logging.String(logging.FieldImpact, "GV synthesis steps abort the run"),
			logging.String(logging.FieldErrorHint, "set google_tts.credentials_file or GOOGLE_APPLICATION_CREDENTIALS"),
		)
	} else {
		voices[stepcode.FamilyGoogle] = google
	}
	return voices
}

func openAILister(cfg *config.Config) catalog.ModelLister {
	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		return nil
	}
	return llm.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, nil)
}

func geminiLister(cfg *config.Config) catalog.ModelLister {
	if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
		return nil
	}
	return llm.NewGemini(cfg.Gemini.APIKey)
}
