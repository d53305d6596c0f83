package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"podflow/internal/config"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"ELEVENLABS_API_KEY", "GOOGLE_APPLICATION_CREDENTIALS", "GCS_BUCKET_NAME",
		"NTFY_TOPIC", "WORKFLOW_ID", "CUSTOM_TOPIC", "PODFLOW_API_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearProviderEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "podflow")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Store.Path != filepath.Join(wantData, "podflow.db") {
		t.Fatalf("unexpected store path: %q", cfg.Store.Path)
	}
	if cfg.Storage.Backend != config.StorageLocal {
		t.Fatalf("expected local storage by default, got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.LocalRoot != cfg.Paths.OutputDir {
		t.Fatalf("expected local root to default to output dir, got %q", cfg.Storage.LocalRoot)
	}
	if cfg.ElevenLabs.MaxChunkChars != 2500 || cfg.GoogleTTS.MaxChunkChars != 4000 {
		t.Fatalf("unexpected chunk limits: %d %d", cfg.ElevenLabs.MaxChunkChars, cfg.GoogleTTS.MaxChunkChars)
	}
	if cfg.Generation.InteractiveTimeoutSeconds != 75 || cfg.Generation.WebSearchTimeoutSeconds != 300 || cfg.Generation.DeepResearchTimeoutSeconds != 900 {
		t.Fatalf("unexpected generation timeouts: %+v", cfg.Generation)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearProviderEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "podflow.toml")

	contents := `
[paths]
data_dir = "` + filepath.Join(tempDir, "data") + `"

[storage]
backend = "gcs"
bucket = "episodes"

[workflow]
default_model = "gpt-4.1"
max_concurrent_runs = 3

[logging]
format = "JSON"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Storage.Backend != config.StorageGCS || cfg.Storage.Bucket != "episodes" {
		t.Fatalf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Workflow.DefaultModel != "gpt-4.1" || cfg.Workflow.MaxConcurrentRuns != 3 {
		t.Fatalf("unexpected workflow: %+v", cfg.Workflow)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
	if cfg.Store.Path != filepath.Join(tempDir, "data", "podflow.db") {
		t.Fatalf("unexpected store path %q", cfg.Store.Path)
	}
}

func TestEnvVarOverridesConfigFile(t *testing.T) {
	clearProviderEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "podflow.toml")

	type payload struct {
		OpenAI struct {
			APIKey string `toml:"api_key"`
		} `toml:"openai"`
		ElevenLabs struct {
			APIKey string `toml:"api_key"`
		} `toml:"elevenlabs"`
		Notifications struct {
			NtfyTopic string `toml:"ntfy_topic"`
		} `toml:"notifications"`
	}
	custom := payload{}
	custom.OpenAI.APIKey = "file-openai"
	custom.ElevenLabs.APIKey = "file-eleven"
	custom.Notifications.NtfyTopic = "https://ntfy.sh/file"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("NTFY_TOPIC", "https://ntfy.sh/env")
	t.Setenv("WORKFLOW_ID", "12")
	t.Setenv("CUSTOM_TOPIC", "solar sails")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OpenAI.APIKey != "env-openai" {
		t.Errorf("expected OpenAI key from env, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.ElevenLabs.APIKey != "file-eleven" {
		t.Errorf("expected ElevenLabs key from file, got %q", cfg.ElevenLabs.APIKey)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/env" {
		t.Errorf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Workflow.WorkflowID != 12 || cfg.Workflow.CustomTopic != "solar sails" {
		t.Errorf("unexpected workflow selectors: %+v", cfg.Workflow)
	}
}

func TestDotEnvNextToConfigIsLoaded(t *testing.T) {
	clearProviderEnv(t)
	os.Unsetenv("ANTHROPIC_API_KEY")
	tempDir := t.TempDir()
	t.Chdir(t.TempDir())
	configPath := filepath.Join(tempDir, "podflow.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte("ANTHROPIC_API_KEY=dotenv-key\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("ANTHROPIC_API_KEY") })

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Anthropic.APIKey != "dotenv-key" {
		t.Fatalf("expected key from .env, got %q", cfg.Anthropic.APIKey)
	}
}

func TestInvalidWorkflowIDEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("WORKFLOW_ID", "abc")
	path := filepath.Join(t.TempDir(), "missing.toml")
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for non-numeric WORKFLOW_ID")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_openai_api_key_here") {
		t.Fatalf("sample config missing placeholder OpenAI key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "podflow") {
		t.Fatalf("expected data dir to contain podflow, got %q", cfg.Paths.DataDir)
	}
	if cfg.ElevenLabs.MaxChunkChars != 2500 {
		t.Fatalf("unexpected sample chunk limit %d", cfg.ElevenLabs.MaxChunkChars)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.Storage.LocalRoot = "/tmp/objects"
		return cfg
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	cases := map[string]func(*config.Config){
		"unknown backend":      func(c *config.Config) { c.Storage.Backend = "s3" },
		"gcs without bucket":   func(c *config.Config) { c.Storage.Backend = config.StorageGCS },
		"bad anthropic":        func(c *config.Config) { c.Anthropic.Backend = "vertex" },
		"zero chunk":           func(c *config.Config) { c.ElevenLabs.MaxChunkChars = 0 },
		"zero concurrency":     func(c *config.Config) { c.Workflow.MaxConcurrentRuns = 0 },
		"zero timeout":         func(c *config.Config) { c.Generation.WebSearchTimeoutSeconds = 0 },
		"negative wait cap":    func(c *config.Config) { c.Generation.RateLimitWaitCapSeconds = -1 },
		"blank default model":  func(c *config.Config) { c.Workflow.DefaultModel = " " },
		"notification timeout": func(c *config.Config) { c.Notifications.RequestTimeout = 0 },
	}
	for name, mutate := range cases {
		cfg := valid()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
