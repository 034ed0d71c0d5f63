package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the speech gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Synthesis backend configuration
	BackendURL      string  `envconfig:"BACKEND_URL" default:"http://127.0.0.1:8000"`
	BackendEndpoint string  `envconfig:"BACKEND_ENDPOINT" default:"/v1/audio/speech"`
	BackendAPIKey   string  `envconfig:"BACKEND_API_KEY" default:""`
	BackendModel    string  `envconfig:"BACKEND_MODEL" required:"true"`
	FallbackModel   string  `envconfig:"FALLBACK_MODEL" default:""`
	BackendTimeout  int     `envconfig:"BACKEND_TIMEOUT" default:"30"`  // seconds
	MaxRetries      int     `envconfig:"MAX_RETRIES" default:"2"`       // attempts per model
	Voice           string  `envconfig:"VOICE" default:""`              // backend voice name
	Language        string  `envconfig:"LANGUAGE" default:"en"`         // language code
	StyleIntensity  float64 `envconfig:"STYLE_INTENSITY" default:"1.8"` // 1.0 .. 2.0+
	BaseInstruct    string  `envconfig:"BASE_INSTRUCT" default:""`      // persona instruction override

	// Pipeline configuration
	SynthesisConcurrency int   `envconfig:"SYNTHESIS_CONCURRENCY" default:"1"` // concurrent backend calls
	ChunkMinChars        int   `envconfig:"CHUNK_MIN_CHARS" default:"120"`     // below this, never split
	ChunkTargetChars     int   `envconfig:"CHUNK_TARGET_CHARS" default:"90"`   // greedy packing target
	ChunkMaxCount        int   `envconfig:"CHUNK_MAX_COUNT" default:"3"`       // hard chunk ceiling
	LeadInSilenceMs      int   `envconfig:"LEAD_IN_SILENCE_MS" default:"200"`  // prepended to final audio
	SliceLengthMs        int   `envconfig:"SLICE_LENGTH_MS" default:"20"`      // volume slice length
	InterjectionSeed     int64 `envconfig:"INTERJECTION_SEED" default:"0"`     // 0 = time-seeded

	// Deepgram recognizer configuration (barge-in detection)
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // seconds
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables.
// It first attempts to load from a .env file if one exists, then from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load a .env file (useful for containerized deployments).
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.BackendModel == "" {
		return nil, fmt.Errorf("BACKEND_MODEL is required")
	}
	if cfg.SynthesisConcurrency < 1 {
		return nil, fmt.Errorf("SYNTHESIS_CONCURRENCY must be at least 1")
	}
	if cfg.ChunkMaxCount < 1 {
		return nil, fmt.Errorf("CHUNK_MAX_COUNT must be at least 1")
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.StyleIntensity < 1.0 {
		cfg.StyleIntensity = 1.0
	}

	return &cfg, nil
}
