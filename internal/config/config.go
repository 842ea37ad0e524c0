package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/tatianab/transit-ace/internal/engine"
	"github.com/tatianab/transit-ace/internal/logger"
)

// Config holds the application configuration.
type Config struct {
	LLMProvider       string        `envconfig:"LLM_PROVIDER" default:"gemini"`
	GeminiAPIKey      string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel       string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	OpenAIAPIKey      string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel       string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"90s"`
	GenerationRetries int           `envconfig:"GENERATION_RETRIES" default:"2"`

	StoreBackend string `envconfig:"STORE_BACKEND" default:"sqlite"`
	DataDir      string `envconfig:"DATA_DIR" default:".transit-ace"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	LogPath     string `envconfig:"LOG_PATH" default:"transit-ace.log"`
}

const (
	StoreSQLite = "sqlite"
	StoreYAML   = "yaml"
)

// LoadConfig loads the configuration from environment variables, reading a
// .env file first when one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case engine.ProviderGemini, engine.ProviderOpenAI:
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", engine.ProviderGemini, engine.ProviderOpenAI, c.LLMProvider)
	}
	switch c.StoreBackend {
	case StoreSQLite, StoreYAML:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreSQLite, StoreYAML, c.StoreBackend)
	}
	if c.GenerationRetries < 0 {
		return fmt.Errorf("GENERATION_RETRIES must not be negative")
	}
	return nil
}

// GenerationEnabled reports whether an API key is configured for the
// selected provider.
func (c *Config) GenerationEnabled() bool {
	if c.LLMProvider == engine.ProviderOpenAI {
		return c.OpenAIAPIKey != ""
	}
	return c.GeminiAPIKey != ""
}

// Engine returns the generator settings.
func (c *Config) Engine() engine.Config {
	return engine.Config{
		Provider:      c.LLMProvider,
		GeminiAPIKey:  c.GeminiAPIKey,
		GeminiModel:   c.GeminiModel,
		OpenAIAPIKey:  c.OpenAIAPIKey,
		OpenAIBaseURL: c.OpenAIBaseURL,
		OpenAIModel:   c.OpenAIModel,
		Timeout:       c.GenerationTimeout,
		Retries:       c.GenerationRetries,
	}
}

// Logger returns the logger settings.
func (c *Config) Logger() logger.Config {
	return logger.Config{
		Level:      c.LogLevel,
		Encoding:   c.LogEncoding,
		OutputPath: c.LogPath,
	}
}

// StorePath is the database file or directory for the configured backend.
func (c *Config) StorePath() string {
	if c.StoreBackend == StoreYAML {
		return filepath.Join(c.DataDir, "saves")
	}
	return filepath.Join(c.DataDir, "transit-ace.db")
}
