package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

const (
	// DefaultOllamaModel is the embedding model that produces 384-dimensional vectors.
	DefaultOllamaModel = "all-minilm:l6-v2"

	// DefaultOllamaDimension is the dimension for all-minilm:l6-v2.
	DefaultOllamaDimension = 384

	// DefaultOllamaHost is used when no host is configured.
	DefaultOllamaHost = "http://localhost:11434"
)

// OllamaClient implements Embedder using a local Ollama server.
type OllamaClient struct {
	client    *api.Client
	model     string
	dimension int
}

var _ Embedder = (*OllamaClient)(nil)

// NewOllamaClient creates an Ollama embedding client for host.
// Empty arguments fall back to DefaultOllamaHost, DefaultOllamaModel and
// DefaultOllamaDimension.
func NewOllamaClient(host, model string, expectedDimension int) (*OllamaClient, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if expectedDimension == 0 {
		expectedDimension = DefaultOllamaDimension
	}

	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}

	return &OllamaClient{
		client:    api.NewClient(base, http.DefaultClient),
		model:     model,
		dimension: expectedDimension,
	}, nil
}

// Model returns the configured embedding model name.
func (c *OllamaClient) Model() string {
	return c.model
}

// Dimension returns the expected embedding dimension.
func (c *OllamaClient) Dimension() int {
	return c.dimension
}

// Embed generates an embedding vector for the given text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in a single request and verifies every dimension.
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := c.client.Embed(ctx, &api.EmbedRequest{
		Model: c.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	if err := checkVectors(resp.Embeddings, len(texts), c.dimension, c.model); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

func checkVectors(vecs [][]float32, want, dim int, model string) error {
	if len(vecs) != want {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vecs), want)
	}
	for i, v := range vecs {
		if len(v) != dim {
			return fmt.Errorf("embedding %d dimension mismatch: got %d, want %d (model: %s)", i, len(v), dim, model)
		}
	}
	return nil
}
