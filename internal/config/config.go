// Package config loads the evaluation engine's environment-driven
// configuration surface. Values are read with os.Getenv and validated
// once at startup; there is no hot-reload.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the fully-resolved configuration surface.
type Config struct {
	LLMModelName         string
	LLMInputCostPerMToken  float64
	LLMOutputCostPerMToken float64

	CleanerWindowDefault  int
	FunctionWindowDefault int

	SessionTTL            time.Duration
	SessionSweepInterval  time.Duration
	MaxHistoryEntries     int

	PersistPoolSize    int
	LLMCallTimeout     time.Duration

	UseBatchProcessing bool

	// AnthropicAPIKey and GeminiAPIKey select which gateway backend(s) can
	// be constructed; at least one must be set.
	AnthropicAPIKey string
	GeminiAPIKey    string

	// PostgresDSN is the persistence port's connection string. Empty means
	// the caller intends to use the in-memory store (tests, local runs).
	PostgresDSN string

	// KafkaBrokers, when non-empty, selects the Kafka-backed event sink
	// over the log-only fallback.
	KafkaBrokers []string
	KafkaTopic   string

	// PromptTemplatesDir is the directory the Prompt Renderer loads
	// cleaner/function_caller YAML bodies from.
	PromptTemplatesDir string

	// LogLevel and LogFormat configure the structured logger.
	LogLevel  string
	LogFormat string

	// OTELEndpoint is the OTLP/gRPC collector address. Empty disables
	// trace export; spans are still created against a no-op tracer.
	OTELEndpoint      string
	OTELSamplingRate  float64
	Environment       string
}

// Default values for the optional knobs.
const (
	DefaultSessionTTLSeconds           = 24 * 60 * 60
	DefaultSessionSweepIntervalSeconds = 5 * 60
	DefaultMaxHistoryEntries           = 1000
	DefaultPersistPoolSize             = 4
	DefaultLLMCallTimeoutSeconds       = 30
)

// Load reads an optional .env file (if present) and then the process
// environment, applying the defaults above. It fails fast when a required
// field (model name, pricing) is missing.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnviron(os.Environ())
}

// FromEnviron builds a Config from a slice of "KEY=VALUE" strings, the same
// shape os.Environ() returns. Exposed separately so tests can exercise the
// parser without touching process environment.
func FromEnviron(environ []string) (*Config, error) {
	env := map[string]string{}
	for _, kv := range environ {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			env[parts[0]] = parts[1]
		}
	}
	getenv := func(key string) string { return env[key] }

	cfg := &Config{
		LLMModelName: getenv("LLM_MODEL_NAME"),
		AnthropicAPIKey: getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:    getenv("GEMINI_API_KEY"),
		PostgresDSN:     getenv("DATABASE_URL"),
		KafkaTopic:      getenv("KAFKA_TOPIC"),
		PromptTemplatesDir: getenv("PROMPT_TEMPLATES_DIR"),
		LogLevel:           getenv("LOG_LEVEL"),
		LogFormat:          getenv("LOG_FORMAT"),
		OTELEndpoint:       getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Environment:        getenv("ENVIRONMENT"),
	}
	if cfg.PromptTemplatesDir == "" {
		cfg.PromptTemplatesDir = "templates"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if brokers := getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	var err error
	if cfg.OTELSamplingRate, err = floatEnv(getenv, "OTEL_SAMPLING_RATE", 1.0); err != nil {
		return nil, err
	}
	if cfg.LLMInputCostPerMToken, err = floatEnv(getenv, "LLM_INPUT_COST_PER_MTOKEN", 0); err != nil {
		return nil, err
	}
	if cfg.LLMOutputCostPerMToken, err = floatEnv(getenv, "LLM_OUTPUT_COST_PER_MTOKEN", 0); err != nil {
		return nil, err
	}
	if cfg.CleanerWindowDefault, err = intEnv(getenv, "CLEANER_WINDOW_DEFAULT", 10); err != nil {
		return nil, err
	}
	if cfg.FunctionWindowDefault, err = intEnv(getenv, "FUNCTION_WINDOW_DEFAULT", 20); err != nil {
		return nil, err
	}
	ttlSeconds, err := intEnv(getenv, "SESSION_TTL_SECONDS", DefaultSessionTTLSeconds)
	if err != nil {
		return nil, err
	}
	cfg.SessionTTL = time.Duration(ttlSeconds) * time.Second
	sweepSeconds, err := intEnv(getenv, "SESSION_SWEEP_INTERVAL_SECONDS", DefaultSessionSweepIntervalSeconds)
	if err != nil {
		return nil, err
	}
	cfg.SessionSweepInterval = time.Duration(sweepSeconds) * time.Second
	if cfg.MaxHistoryEntries, err = intEnv(getenv, "MAX_HISTORY_ENTRIES", DefaultMaxHistoryEntries); err != nil {
		return nil, err
	}
	if cfg.PersistPoolSize, err = intEnv(getenv, "PERSIST_POOL_SIZE", DefaultPersistPoolSize); err != nil {
		return nil, err
	}
	callTimeoutSeconds, err := intEnv(getenv, "LLM_CALL_TIMEOUT_SECONDS", DefaultLLMCallTimeoutSeconds)
	if err != nil {
		return nil, err
	}
	cfg.LLMCallTimeout = time.Duration(callTimeoutSeconds) * time.Second
	if cfg.UseBatchProcessing, err = boolEnv(getenv, "USE_BATCH_PROCESSING", true); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the required fields.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLMModelName) == "" {
		return fmt.Errorf("config: LLM_MODEL_NAME is required")
	}
	if c.LLMInputCostPerMToken <= 0 || c.LLMOutputCostPerMToken <= 0 {
		return fmt.Errorf("config: LLM_INPUT_COST_PER_MTOKEN and LLM_OUTPUT_COST_PER_MTOKEN are required and must be positive")
	}
	if c.AnthropicAPIKey == "" && c.GeminiAPIKey == "" {
		return fmt.Errorf("config: one of ANTHROPIC_API_KEY or GEMINI_API_KEY is required")
	}
	return nil
}

func intEnv(getenv func(string) string, key string, def int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid int for %s: %w", key, err)
	}
	return v, nil
}

func floatEnv(getenv func(string) string, key string, def float64) (float64, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid float for %s: %w", key, err)
	}
	return v, nil
}

func boolEnv(getenv func(string) string, key string, def bool) (bool, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config: invalid bool for %s: %w", key, err)
	}
	return v, nil
}
