// Package config loads engine configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config covers everything the binaries need: game content, AI access,
// determinism controls and tracing.
type Config struct {
	GameFile string `env:"GAME_FILE" envDefault:"game.yaml"`
	Debug    bool   `env:"DEBUG" envDefault:"false"`
	LogDB    string `env:"LOG_DB" envDefault:"./turns.db"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	Model        string `env:"MODEL" envDefault:"gpt-4o-mini"`
	AIEnabled    bool   `env:"AI_ENABLED" envDefault:"true"`
	AITimeoutSec int    `env:"AI_TIMEOUT_SECONDS" envDefault:"30"`

	// SeedMode "fixed" derives per-turn seeds from BaseSeed; "generated"
	// hashes game, session and turn ids instead.
	SeedMode string `env:"SEED_MODE" envDefault:"generated"`
	BaseSeed int64  `env:"BASE_SEED" envDefault:"0"`

	TracingEnabled bool   `env:"TRACING_ENABLED" envDefault:"false"`
	LangfuseHost   string `env:"LANGFUSE_HOST" envDefault:"https://cloud.langfuse.com"`
	LangfusePublic string `env:"LANGFUSE_PUBLIC_KEY"`
	LangfuseSecret string `env:"LANGFUSE_SECRET_KEY"`
	Environment    string `env:"ENVIRONMENT" envDefault:"development"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"dev"`
}

// Load parses the environment and validates the combinations that cannot
// work at runtime.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.AIEnabled && cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required when AI_ENABLED is true")
	}
	if cfg.SeedMode != "fixed" && cfg.SeedMode != "generated" {
		return nil, fmt.Errorf("SEED_MODE must be fixed or generated, got %q", cfg.SeedMode)
	}
	if cfg.SeedMode == "fixed" && cfg.BaseSeed == 0 {
		return nil, fmt.Errorf("BASE_SEED is required when SEED_MODE is fixed")
	}
	if cfg.TracingEnabled && (cfg.LangfusePublic == "" || cfg.LangfuseSecret == "") {
		return nil, fmt.Errorf("LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY are required when TRACING_ENABLED is true")
	}

	return &cfg, nil
}
