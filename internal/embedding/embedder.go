// Package embedding turns deal text into unit-length vectors.
package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/dealsight/internal/metrics"
)

// Embedder defines the interface for text embedding providers.
type Embedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one provider call.
	// The result has one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the embedding vector dimension.
	// Must match the HNSW index dimension of the collection.
	Dimension() int
}

// Provider names.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds configuration for creating an Embedder.
type Config struct {
	Provider string

	// Model is the provider-specific model name. Empty uses the provider default.
	Model string

	// Dimension is the required output dimension. 0 uses the provider default.
	Dimension int

	OllamaHost   string
	OpenAIAPIKey string

	Metrics metrics.Recorder
	Logger  *slog.Logger
}

// New creates an Embedder for cfg. Every vector it returns is L2-normalized.
func New(cfg Config) (Embedder, error) {
	var (
		inner Embedder
		err   error
	)

	switch cfg.Provider {
	case ProviderOllama, "":
		inner, err = NewOllamaClient(cfg.OllamaHost, cfg.Model, cfg.Dimension)
	case ProviderOpenAI:
		inner, err = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Model, cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return Normalized(inner, cfg.Metrics, cfg.Logger), nil
}
