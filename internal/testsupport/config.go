package testsupport

import (
	"path/filepath"
	"testing"

	"podflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.OutputDir = filepath.Join(base, "objects")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Store.Path = filepath.Join(base, "data", "podflow.db")
	cfgVal.Storage.Backend = config.StorageLocal
	cfgVal.Storage.LocalRoot = filepath.Join(base, "objects")
	cfgVal.Workflow.LockDir = filepath.Join(base, "locks")
	cfgVal.Synthesis.CacheDir = filepath.Join(base, "cache")
	cfgVal.Synthesis.CacheEnabled = false
	cfgVal.Generation.RateLimitWaitCapSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMaxConcurrentRuns overrides the runner's concurrency limit.
func WithMaxConcurrentRuns(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.MaxConcurrentRuns = n
	}
}

// WithNtfyTopic enables notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithSynthesisCache enables the on-disk chunk cache under the temp dir.
func WithSynthesisCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Synthesis.CacheEnabled = true
	}
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
