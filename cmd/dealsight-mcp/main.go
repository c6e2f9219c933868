// Package main provides the entry point for the dealsight MCP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raphaelgruber/dealsight/internal/app"
	"github.com/raphaelgruber/dealsight/internal/config"
	"github.com/raphaelgruber/dealsight/internal/server"
	"github.com/raphaelgruber/dealsight/internal/tools"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "YAML config file (default $DEALSIGHT_CONFIG)")
	httpAddr := flag.String("http", "", "serve streamable HTTP on this address instead of stdio")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		os.Exit(1)
	}

	// Dual output: stderr text + file JSON. Stdout belongs to the stdio transport.
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("dealsight-mcp starting",
		"version", version,
		"surrealdb_url", cfg.SurrealDBURL,
		"collection", cfg.Collection,
		"embed_model", cfg.EmbedModel,
		"llm_provider", cfg.LLMProvider,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing database connection")
		_ = a.Close(context.Background())
	}()

	syn, err := a.Synthesizer(ctx, a.SynthesisOptions())
	if err != nil {
		logger.Error("failed to create language model", "error", err)
		os.Exit(1)
	}

	srv := server.New(version, logger)
	srv.Setup(server.DefaultSlowRequest)

	tools.RegisterAll(srv.MCPServer(), &tools.Dependencies{
		Search:      a.Search(),
		Synthesizer: syn,
		Metrics:     a.Metrics,
		Logger:      logger,
	}, &cfg)
	logger.Info("server ready, awaiting connections")

	if *httpAddr != "" {
		err = srv.RunHTTP(ctx, *httpAddr)
	} else {
		err = srv.Run(ctx)
	}
	if err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
