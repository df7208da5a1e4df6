package main

import (
	"context"
	"fmt"
	"time"

	"storyengine/cmd/game/ui"
	"storyengine/internal/config"
	"storyengine/internal/content"
	"storyengine/internal/debug"
	"storyengine/internal/game/director"
	"storyengine/internal/game/session"
	"storyengine/internal/llm"
	"storyengine/internal/logging"
	"storyengine/internal/observability"
)

func createApp() (ui.Model, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return ui.Model{}, nil, err
	}

	debugLogger := debug.NewLogger(cfg.Debug)

	ctx := context.Background()
	tracerProvider, err := observability.InitTracing(ctx, observability.Config{
		ServiceName:    "storyengine",
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		Enabled:        cfg.TracingEnabled,
		LangfuseHost:   cfg.LangfuseHost,
		PublicKey:      cfg.LangfusePublic,
		SecretKey:      cfg.LangfuseSecret,
	})
	if err != nil {
		debugLogger.Printf("Failed to initialize tracing: %v", err)
	} else if tracerProvider.IsEnabled() {
		debugLogger.Println("OpenTelemetry tracing initialized and enabled")
	}

	def, err := content.Load(cfg.GameFile)
	if err != nil {
		return ui.Model{}, nil, fmt.Errorf("failed to load game: %w", err)
	}

	turnLogger, err := logging.NewTurnLogger(cfg.LogDB)
	if err != nil {
		return ui.Model{}, nil, fmt.Errorf("failed to initialize turn logger: %w", err)
	}

	var writer director.Writer
	var checker director.Checker
	if cfg.AIEnabled {
		llmService := llm.NewService(cfg.OpenAIAPIKey, cfg.Model, debugLogger)
		d := director.New(llmService, debugLogger)
		writer, checker = d, d
	}

	registry := session.NewRegistry()
	runtime, initial, err := registry.Create(session.Options{
		Def:       def,
		Writer:    writer,
		Checker:   checker,
		Log:       debugLogger,
		Turns:     turnLogger,
		SeedMode:  cfg.SeedMode,
		BaseSeed:  cfg.BaseSeed,
		AITimeout: time.Duration(cfg.AITimeoutSec) * time.Second,
	})
	if err != nil {
		return ui.Model{}, nil, fmt.Errorf("failed to start session: %w", err)
	}

	debugLogger.Printf("session %s started on %q", runtime.ID(), def.Meta.Title)
	model := ui.NewModel(runtime, initial, debugLogger)

	cleanup := func() {
		turnLogger.Close()
		if tracerProvider != nil {
			tracerProvider.Shutdown(context.Background())
		}
	}
	return model, cleanup, nil
}
