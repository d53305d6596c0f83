package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// Store locates the SQLite configuration store.
type Store struct {
	Path string `toml:"path"`
}

// Storage selects the object storage backend used by save, synthesis and
// merge steps.
type Storage struct {
	Backend         string `toml:"backend"`
	LocalRoot       string `toml:"local_root"`
	Bucket          string `toml:"bucket"`
	CredentialsFile string `toml:"credentials_file"`
}

// OpenAI contains OpenAI connection settings.
type OpenAI struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// Anthropic contains Claude connection settings. Backend "bedrock" routes
// Claude models through AWS Bedrock instead of the Messages API.
type Anthropic struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Backend string `toml:"backend"`
	Region  string `toml:"region"`
}

// Gemini contains Google Gemini connection settings.
type Gemini struct {
	APIKey string `toml:"api_key"`
}

// ElevenLabs contains settings for provider family "E".
type ElevenLabs struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	DefaultModel   string `toml:"default_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxChunkChars  int    `toml:"max_chunk_chars"`
}

// GoogleTTS contains settings for provider family "GV".
type GoogleTTS struct {
	CredentialsFile string `toml:"credentials_file"`
	LanguageCode    string `toml:"language_code"`
	VoicePrefix     string `toml:"voice_prefix"`
	MaxChunkChars   int    `toml:"max_chunk_chars"`
}

// Generation contains timeouts and budgets shared by all text-generation
// providers.
type Generation struct {
	InteractiveTimeoutSeconds  int `toml:"interactive_timeout_seconds"`
	WebSearchTimeoutSeconds    int `toml:"web_search_timeout_seconds"`
	DeepResearchTimeoutSeconds int `toml:"deep_research_timeout_seconds"`
	MaxOutputTokens            int `toml:"max_output_tokens"`
	RateLimitWaitCapSeconds    int `toml:"rate_limit_wait_cap_seconds"`
}

// Feed contains the posted-episode RSS feed location.
type Feed struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains run selection and concurrency settings.
type Workflow struct {
	DefaultModel      string `toml:"default_model"`
	MaxConcurrentRuns int    `toml:"max_concurrent_runs"`
	LockDir           string `toml:"lock_dir"`
	// WorkflowID restricts runs to one workflow when positive.
	WorkflowID  int64  `toml:"workflow_id"`
	CustomTopic string `toml:"custom_topic"`
}

// Synthesis contains the on-disk chunk cache settings.
type Synthesis struct {
	CacheDir     string `toml:"cache_dir"`
	CacheEnabled bool   `toml:"cache_enabled"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunCompleted   bool   `toml:"run_completed"`
	RunAborted     bool   `toml:"run_aborted"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for podflow.
//
// Configuration sections by subsystem:
//   - Paths: data, log and output directories plus the API bind address
//   - Store: SQLite configuration store location
//   - Storage: object storage backend (local or gcs)
//   - OpenAI, Anthropic, Gemini, Generation: text-generation providers
//   - ElevenLabs, GoogleTTS, Synthesis: speech synthesis providers and cache
//   - Feed: posted-episode RSS feed
//   - Workflow: run selection, default model and concurrency
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Store         Store         `toml:"store"`
	Storage       Storage       `toml:"storage"`
	OpenAI        OpenAI        `toml:"openai"`
	Anthropic     Anthropic     `toml:"anthropic"`
	Gemini        Gemini        `toml:"gemini"`
	ElevenLabs    ElevenLabs    `toml:"elevenlabs"`
	GoogleTTS     GoogleTTS     `toml:"google_tts"`
	Generation    Generation    `toml:"generation"`
	Feed          Feed          `toml:"feed"`
	Workflow      Workflow      `toml:"workflow"`
	Synthesis     Synthesis     `toml:"synthesis"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	loadDotEnv(resolvedPath)

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads .env from the working directory and from the config
// directory. Variables already present in the environment are kept.
func loadDotEnv(configPath string) {
	candidates := []string{".env"}
	if dir := filepath.Dir(configPath); configPath != "" && dir != "." {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			continue
		}
		_ = godotenv.Load(candidate)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("podflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, c.Workflow.LockDir}
	if c.Storage.Backend == StorageLocal {
		dirs = append(dirs, c.Storage.LocalRoot)
	}
	if c.Synthesis.CacheEnabled {
		dirs = append(dirs, c.Synthesis.CacheDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Timeout durations for the three classes of generation calls.
func (g Generation) InteractiveTimeout() time.Duration {
	return time.Duration(g.InteractiveTimeoutSeconds) * time.Second
}

func (g Generation) WebSearchTimeout() time.Duration {
	return time.Duration(g.WebSearchTimeoutSeconds) * time.Second
}

func (g Generation) DeepResearchTimeout() time.Duration {
	return time.Duration(g.DeepResearchTimeoutSeconds) * time.Second
}

func (g Generation) RateLimitWaitCap() time.Duration {
	return time.Duration(g.RateLimitWaitCapSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
