// Package app wires configuration into the store, providers and services
// shared by the CLI and the MCP server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/dealsight/internal/config"
	"github.com/raphaelgruber/dealsight/internal/db"
	"github.com/raphaelgruber/dealsight/internal/embedding"
	"github.com/raphaelgruber/dealsight/internal/llm"
	"github.com/raphaelgruber/dealsight/internal/metrics"
	"github.com/raphaelgruber/dealsight/internal/service"
)

// App holds every long-lived dependency. The language model is created on
// first use so ingest and search run without LLM credentials.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Collector
	DB       *db.Client
	Embedder embedding.Embedder

	model *llm.Model
}

// New connects to SurrealDB and creates the embedder.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mc := metrics.NewCollector()

	var (
		connectCtx context.Context
		cancel     context.CancelFunc
	)
	if cfg.DBTimeout > 0 {
		connectCtx, cancel = context.WithTimeout(ctx, cfg.DBTimeout)
	} else {
		connectCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	dbClient, err := db.NewClient(connectCtx, dbConfig(cfg), logger, mc)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	embedder, err := embedding.New(embeddingConfig(cfg, mc, logger))
	if err != nil {
		_ = dbClient.Close(ctx)
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	logger.Debug("dependencies ready",
		"surrealdb_url", cfg.SurrealDBURL,
		"embed_provider", cfg.EmbedProvider,
		"embed_model", embedder.Model(),
		"embed_dimension", embedder.Dimension())

	return &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  mc,
		DB:       dbClient,
		Embedder: embedder,
	}, nil
}

// Close releases the database connection.
func (a *App) Close(ctx context.Context) error {
	return a.DB.Close(ctx)
}

// Timeouts returns the per-call deadlines from configuration.
func (a *App) Timeouts() service.Timeouts {
	return timeouts(a.Config)
}

// Ingest returns an ingest service bound to the shared store and embedder.
func (a *App) Ingest() *service.IngestService {
	return service.NewIngestService(a.DB, a.Embedder, a.Timeouts(), a.Logger)
}

// Search returns a search service bound to the shared store and embedder.
func (a *App) Search() *service.SearchService {
	return service.NewSearchService(a.DB, a.Embedder, a.Config.SearchEf, a.Timeouts(), a.Logger)
}

// Synthesizer creates the language model if needed and returns a
// synthesizer retrieving with opts.
func (a *App) Synthesizer(ctx context.Context, opts service.SynthesisOptions) (*service.Synthesizer, error) {
	if a.model == nil {
		m, err := llm.NewModel(ctx, llmConfig(a.Config, a.Metrics, a.Logger))
		if err != nil {
			return nil, fmt.Errorf("init model: %w", err)
		}
		a.model = m
		a.Logger.Debug("language model ready", "provider", a.Config.LLMProvider, "model", m.Model())
	}
	return service.NewSynthesizer(a.Search(), a.model, opts, a.Config.LLMTimeout, a.Logger), nil
}

// SynthesisOptions returns the configured collection, top_k and default filters.
func (a *App) SynthesisOptions() service.SynthesisOptions {
	return service.SynthesisOptions{
		Collection:   a.Config.Collection,
		TopK:         a.Config.TopK,
		Sector:       a.Config.DefaultSector,
		DocumentType: a.Config.DefaultDocumentType,
	}
}

func dbConfig(cfg config.Config) db.Config {
	return db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}
}

func embeddingConfig(cfg config.Config, rec metrics.Recorder, logger *slog.Logger) embedding.Config {
	return embedding.Config{
		Provider:     cfg.EmbedProvider,
		Model:        cfg.EmbedModel,
		Dimension:    cfg.EmbedDimension,
		OllamaHost:   cfg.OllamaHost,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		Metrics:      rec,
		Logger:       logger,
	}
}

func llmConfig(cfg config.Config, rec metrics.Recorder, logger *slog.Logger) llm.Config {
	return llm.Config{
		Provider:        cfg.LLMProvider,
		Model:           cfg.LLMModel,
		OllamaHost:      cfg.OllamaHost,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AWSRegion:       cfg.AWSRegion,
		MaxTokens:       cfg.LLMMaxTokens,
		Temperature:     cfg.LLMTemperature,
		TopP:            cfg.LLMTopP,
		Metrics:         rec,
		Logger:          logger,
	}
}

func timeouts(cfg config.Config) service.Timeouts {
	return service.Timeouts{
		Embed:    cfg.EmbedTimeout,
		Generate: cfg.LLMTimeout,
		Store:    cfg.DBTimeout,
	}
}
