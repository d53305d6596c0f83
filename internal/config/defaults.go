package config

const (
	defaultConfigPath                 = "~/.config/podflow/config.toml"
	defaultDataDir                    = "~/.local/share/podflow"
	defaultLogDir                     = "~/.local/share/podflow/logs"
	defaultOutputDir                  = "~/.local/share/podflow/objects"
	defaultAPIBind                    = "127.0.0.1:7490"
	defaultStoreFile                  = "podflow.db"
	defaultAnthropicBaseURL           = "https://api.anthropic.com"
	defaultAnthropicBackend           = "api"
	defaultAnthropicRegion            = "us-east-1"
	defaultElevenLabsBaseURL          = "https://api.elevenlabs.io"
	defaultElevenLabsModel            = "eleven_multilingual_v2"
	defaultElevenLabsTimeoutSeconds   = 120
	defaultElevenLabsMaxChunkChars    = 2500
	defaultGoogleTTSLanguage          = "en-US"
	defaultGoogleTTSVoicePrefix       = "en-US-Chirp3-HD-"
	defaultGoogleTTSMaxChunkChars     = 4000
	defaultInteractiveTimeoutSeconds  = 75
	defaultWebSearchTimeoutSeconds    = 300
	defaultDeepResearchTimeoutSeconds = 900
	defaultMaxOutputTokens            = 4000
	defaultRateLimitWaitCapSeconds    = 10
	defaultFeedTimeoutSeconds         = 30
	defaultModel                      = "gpt-4o-mini"
	defaultMaxConcurrentRuns          = 1
	defaultLockDir                    = "~/.local/share/podflow/locks"
	defaultCacheDir                   = "~/.cache/podflow/speech"
	defaultLogFormat                  = "console"
	defaultLogLevel                   = "info"

	// StorageLocal and StorageGCS are the supported storage backends.
	StorageLocal = "local"
	StorageGCS   = "gcs"

	// AnthropicAPI and AnthropicBedrock are the supported Claude backends.
	AnthropicAPI     = "api"
	AnthropicBedrock = "bedrock"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
			APIBind:   defaultAPIBind,
		},
		Storage: Storage{
			Backend: StorageLocal,
		},
		Anthropic: Anthropic{
			BaseURL: defaultAnthropicBaseURL,
			Backend: defaultAnthropicBackend,
			Region:  defaultAnthropicRegion,
		},
		ElevenLabs: ElevenLabs{
			BaseURL:        defaultElevenLabsBaseURL,
			DefaultModel:   defaultElevenLabsModel,
			TimeoutSeconds: defaultElevenLabsTimeoutSeconds,
			MaxChunkChars:  defaultElevenLabsMaxChunkChars,
		},
		GoogleTTS: GoogleTTS{
			LanguageCode:  defaultGoogleTTSLanguage,
			VoicePrefix:   defaultGoogleTTSVoicePrefix,
			MaxChunkChars: defaultGoogleTTSMaxChunkChars,
		},
		Generation: Generation{
			InteractiveTimeoutSeconds:  defaultInteractiveTimeoutSeconds,
			WebSearchTimeoutSeconds:    defaultWebSearchTimeoutSeconds,
			DeepResearchTimeoutSeconds: defaultDeepResearchTimeoutSeconds,
			MaxOutputTokens:            defaultMaxOutputTokens,
			RateLimitWaitCapSeconds:    defaultRateLimitWaitCapSeconds,
		},
		Feed: Feed{
			TimeoutSeconds: defaultFeedTimeoutSeconds,
		},
		Workflow: Workflow{
			DefaultModel:      defaultModel,
			MaxConcurrentRuns: defaultMaxConcurrentRuns,
			LockDir:           defaultLockDir,
		},
		Synthesis: Synthesis{
			CacheDir:     defaultCacheDir,
			CacheEnabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			RunCompleted:   true,
			RunAborted:     true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
