package config

import (
	"strings"
	"testing"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("AI_ENABLED", "true")
	t.Setenv("SEED_MODE", "generated")
	t.Setenv("BASE_SEED", "0")
	t.Setenv("TRACING_ENABLED", "false")
	t.Setenv("LANGFUSE_PUBLIC_KEY", "")
	t.Setenv("LANGFUSE_SECRET_KEY", "")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GameFile != "game.yaml" {
		t.Errorf("expected default game file, got %q", cfg.GameFile)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("expected default model, got %q", cfg.Model)
	}
	if cfg.SeedMode != "generated" {
		t.Errorf("expected generated seed mode, got %q", cfg.SeedMode)
	}
	if cfg.AITimeoutSec != 30 {
		t.Errorf("expected default timeout 30, got %d", cfg.AITimeoutSec)
	}
}

func TestLoadRequiresAPIKeyWhenAIEnabled(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}

	// Disabling AI lifts the requirement.
	t.Setenv("AI_ENABLED", "false")
	if _, err := Load(); err != nil {
		t.Fatalf("expected AI-disabled load to succeed, got %v", err)
	}
}

func TestLoadValidatesSeedMode(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SEED_MODE", "chaotic")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SEED_MODE") {
		t.Fatalf("expected seed mode error, got %v", err)
	}

	t.Setenv("SEED_MODE", "fixed")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "BASE_SEED") {
		t.Fatalf("expected base seed error, got %v", err)
	}

	t.Setenv("BASE_SEED", "1337")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseSeed != 1337 {
		t.Errorf("expected base seed 1337, got %d", cfg.BaseSeed)
	}
}

func TestLoadRequiresLangfuseKeysWhenTracing(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TRACING_ENABLED", "true")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "LANGFUSE") {
		t.Fatalf("expected langfuse key error, got %v", err)
	}

	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk")
	t.Setenv("LANGFUSE_SECRET_KEY", "sk")
	if _, err := Load(); err != nil {
		t.Fatalf("expected tracing load to succeed, got %v", err)
	}
}
