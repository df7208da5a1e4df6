// MCP server entry point: exposes the engine's session tools over stdio so
// external agents can start and drive sessions.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"storyengine/internal/config"
	"storyengine/internal/content"
	"storyengine/internal/debug"
	"storyengine/internal/game/director"
	"storyengine/internal/game/session"
	"storyengine/internal/llm"
	"storyengine/internal/logging"
	"storyengine/internal/mcp"
	"storyengine/internal/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	debugLogger := debug.NewLogger(cfg.Debug)

	ctx := context.Background()
	tracerProvider, err := observability.InitTracing(ctx, observability.Config{
		ServiceName:    "storyengine-mcp",
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		Enabled:        cfg.TracingEnabled,
		LangfuseHost:   cfg.LangfuseHost,
		PublicKey:      cfg.LangfusePublic,
		SecretKey:      cfg.LangfuseSecret,
	})
	if err != nil {
		debugLogger.Printf("Failed to initialize tracing: %v", err)
	} else {
		defer tracerProvider.Shutdown(context.Background())
	}

	def, err := content.Load(cfg.GameFile)
	if err != nil {
		return fmt.Errorf("failed to load game: %w", err)
	}

	turnLogger, err := logging.NewTurnLogger(cfg.LogDB)
	if err != nil {
		return fmt.Errorf("failed to initialize turn logger: %w", err)
	}
	defer turnLogger.Close()

	var writer director.Writer
	var checker director.Checker
	if cfg.AIEnabled {
		llmService := llm.NewService(cfg.OpenAIAPIKey, cfg.Model, debugLogger)
		d := director.New(llmService, debugLogger)
		writer, checker = d, d
	}

	opts := session.Options{
		Def:       def,
		Writer:    writer,
		Checker:   checker,
		Log:       debugLogger,
		Turns:     turnLogger,
		SeedMode:  cfg.SeedMode,
		BaseSeed:  cfg.BaseSeed,
		AITimeout: time.Duration(cfg.AITimeoutSec) * time.Second,
	}

	server := mcp.NewServer(session.NewRegistry(), opts, debugLogger)
	debugLogger.Printf("mcp server ready on %q", def.Meta.Title)
	return server.Run(ctx)
}
