package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	// DefaultOpenAIModel is used when no OpenAI embedding model is configured.
	DefaultOpenAIModel = "text-embedding-3-small"

	// DefaultOpenAIDimension is the dimension for text-embedding-3-small.
	DefaultOpenAIDimension = 1536
)

// OpenAIClient implements Embedder through langchaingo's OpenAI client.
type OpenAIClient struct {
	model     embeddings.Embedder
	modelName string
	dimension int
}

var _ Embedder = (*OpenAIClient)(nil)

// NewOpenAIClient creates an OpenAI embedder. apiKey is required.
func NewOpenAIClient(apiKey, model string, expectedDimension int) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key required")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if expectedDimension == 0 {
		expectedDimension = DefaultOpenAIDimension
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create openai embedder: %w", err)
	}

	return &OpenAIClient{model: emb, modelName: model, dimension: expectedDimension}, nil
}

// Model returns the embedding model name.
func (c *OpenAIClient) Model() string {
	return c.modelName
}

// Dimension returns the expected embedding dimension.
func (c *OpenAIClient) Dimension() int {
	return c.dimension
}

// Embed generates an embedding vector for text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := c.model.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if err := checkVectors([][]float32{vec}, 1, c.dimension, c.modelName); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := c.model.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("openai embed batch: %w", err)
	}
	if err := checkVectors(vecs, len(texts), c.dimension, c.modelName); err != nil {
		return nil, err
	}
	return vecs, nil
}
