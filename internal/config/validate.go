package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateAnthropic(); err != nil {
		return err
	}
	if err := c.validateSynthesis(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		if strings.TrimSpace(c.Storage.LocalRoot) == "" {
			return errors.New("storage.local_root must be set when storage.backend is local")
		}
	case StorageGCS:
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			return errors.New("storage.bucket must be set when storage.backend is gcs (or set GCS_BUCKET_NAME)")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want local or gcs)", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateAnthropic() error {
	switch c.Anthropic.Backend {
	case AnthropicAPI, AnthropicBedrock:
		return nil
	default:
		return fmt.Errorf("anthropic.backend: unsupported value %q (want api or bedrock)", c.Anthropic.Backend)
	}
}

func (c *Config) validateSynthesis() error {
	return ensurePositiveMap(map[string]int{
		"elevenlabs.max_chunk_chars": c.ElevenLabs.MaxChunkChars,
		"elevenlabs.timeout_seconds": c.ElevenLabs.TimeoutSeconds,
		"google_tts.max_chunk_chars": c.GoogleTTS.MaxChunkChars,
	})
}

func (c *Config) validateGeneration() error {
	if err := ensurePositiveMap(map[string]int{
		"generation.interactive_timeout_seconds":   c.Generation.InteractiveTimeoutSeconds,
		"generation.web_search_timeout_seconds":    c.Generation.WebSearchTimeoutSeconds,
		"generation.deep_research_timeout_seconds": c.Generation.DeepResearchTimeoutSeconds,
		"generation.max_output_tokens":             c.Generation.MaxOutputTokens,
		"feed.timeout_seconds":                     c.Feed.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Generation.RateLimitWaitCapSeconds < 0 {
		return errors.New("generation.rate_limit_wait_cap_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxConcurrentRuns <= 0 {
		return errors.New("workflow.max_concurrent_runs must be positive")
	}
	if c.Workflow.WorkflowID < 0 {
		return errors.New("workflow.workflow_id must be >= 0")
	}
	if strings.TrimSpace(c.Workflow.DefaultModel) == "" {
		return errors.New("workflow.default_model must be set")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
