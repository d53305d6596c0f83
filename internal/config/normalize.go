package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeProviders()
	if err := c.normalizeWorkflow(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	overrideFromEnv(&c.Paths.APIToken, "PODFLOW_API_TOKEN")

	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = filepath.Join(c.Paths.DataDir, defaultStoreFile)
	}
	if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	var err error
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageLocal
	}
	if strings.TrimSpace(c.Storage.LocalRoot) == "" {
		c.Storage.LocalRoot = c.Paths.OutputDir
	}
	if c.Storage.LocalRoot, err = expandPath(c.Storage.LocalRoot); err != nil {
		return fmt.Errorf("storage.local_root: %w", err)
	}
	overrideFromEnv(&c.Storage.Bucket, "GCS_BUCKET_NAME")
	overrideFromEnv(&c.Storage.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	if c.Storage.CredentialsFile, err = expandPath(c.Storage.CredentialsFile); err != nil {
		return fmt.Errorf("storage.credentials_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeProviders() {
	overrideFromEnv(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	c.OpenAI.BaseURL = strings.TrimSpace(c.OpenAI.BaseURL)

	overrideFromEnv(&c.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	c.Anthropic.BaseURL = strings.TrimRight(strings.TrimSpace(c.Anthropic.BaseURL), "/")
	if c.Anthropic.BaseURL == "" {
		c.Anthropic.BaseURL = defaultAnthropicBaseURL
	}
	c.Anthropic.Backend = strings.ToLower(strings.TrimSpace(c.Anthropic.Backend))
	if c.Anthropic.Backend == "" {
		c.Anthropic.Backend = defaultAnthropicBackend
	}
	c.Anthropic.Region = strings.TrimSpace(c.Anthropic.Region)
	if c.Anthropic.Region == "" {
		c.Anthropic.Region = defaultAnthropicRegion
	}

	overrideFromEnv(&c.Gemini.APIKey, "GOOGLE_API_KEY")
	overrideFromEnv(&c.Gemini.APIKey, "GEMINI_API_KEY")

	overrideFromEnv(&c.ElevenLabs.APIKey, "ELEVENLABS_API_KEY")
	c.ElevenLabs.BaseURL = strings.TrimRight(strings.TrimSpace(c.ElevenLabs.BaseURL), "/")
	if c.ElevenLabs.BaseURL == "" {
		c.ElevenLabs.BaseURL = defaultElevenLabsBaseURL
	}
	c.ElevenLabs.DefaultModel = strings.TrimSpace(c.ElevenLabs.DefaultModel)
	if c.ElevenLabs.DefaultModel == "" {
		c.ElevenLabs.DefaultModel = defaultElevenLabsModel
	}
	if c.ElevenLabs.TimeoutSeconds <= 0 {
		c.ElevenLabs.TimeoutSeconds = defaultElevenLabsTimeoutSeconds
	}

	if strings.TrimSpace(c.GoogleTTS.CredentialsFile) == "" {
		c.GoogleTTS.CredentialsFile = c.Storage.CredentialsFile
	}
	if c.GoogleTTS.LanguageCode = strings.TrimSpace(c.GoogleTTS.LanguageCode); c.GoogleTTS.LanguageCode == "" {
		c.GoogleTTS.LanguageCode = defaultGoogleTTSLanguage
	}
	if c.GoogleTTS.VoicePrefix = strings.TrimSpace(c.GoogleTTS.VoicePrefix); c.GoogleTTS.VoicePrefix == "" {
		c.GoogleTTS.VoicePrefix = defaultGoogleTTSVoicePrefix
	}

	c.Feed.URL = strings.TrimSpace(c.Feed.URL)
	if c.Feed.TimeoutSeconds <= 0 {
		c.Feed.TimeoutSeconds = defaultFeedTimeoutSeconds
	}
}

func (c *Config) normalizeWorkflow() error {
	var err error
	c.Workflow.DefaultModel = strings.TrimSpace(c.Workflow.DefaultModel)
	if c.Workflow.DefaultModel == "" {
		c.Workflow.DefaultModel = defaultModel
	}
	if strings.TrimSpace(c.Workflow.LockDir) == "" {
		c.Workflow.LockDir = defaultLockDir
	}
	if c.Workflow.LockDir, err = expandPath(c.Workflow.LockDir); err != nil {
		return fmt.Errorf("workflow.lock_dir: %w", err)
	}
	if value, ok := os.LookupEnv("WORKFLOW_ID"); ok && strings.TrimSpace(value) != "" {
		id, parseErr := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if parseErr != nil {
			return fmt.Errorf("WORKFLOW_ID: %w", parseErr)
		}
		c.Workflow.WorkflowID = id
	}
	overrideFromEnv(&c.Workflow.CustomTopic, "CUSTOM_TOPIC")

	if strings.TrimSpace(c.Synthesis.CacheDir) == "" {
		c.Synthesis.CacheDir = defaultCacheDir
	}
	if c.Synthesis.CacheDir, err = expandPath(c.Synthesis.CacheDir); err != nil {
		return fmt.Errorf("synthesis.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	overrideFromEnv(&c.Notifications.NtfyTopic, "NTFY_TOPIC")
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// overrideFromEnv replaces target with the named environment variable when it
// is set and non-blank.
func overrideFromEnv(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
		return
	}
	*target = strings.TrimSpace(*target)
}
