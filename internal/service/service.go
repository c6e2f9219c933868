// Package service implements deal ingestion, retrieval and synthesis on top of
// injected store, embedding and language model dependencies.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/dealsight/internal/db"
	"github.com/raphaelgruber/dealsight/internal/embedding"
	"github.com/raphaelgruber/dealsight/internal/models"
)

// VectorStore is the subset of *db.Client the services depend on.
type VectorStore interface {
	EnsureCollection(ctx context.Context, name string, dim int) error
	HasCollection(ctx context.Context, name string) (bool, error)
	CollectionDimension(ctx context.Context, name string) (int, error)
	InsertDeals(ctx context.Context, name string, records []models.DealRecord, replace bool) error
	SearchDeals(ctx context.Context, name string, q db.DealQuery) ([]models.SearchHit, error)
}

var _ VectorStore = (*db.Client)(nil)

// Embedder is the embedding provider used for both ingestion and queries.
type Embedder = embedding.Embedder

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Timeouts bound each provider and store call. Zero means no deadline
// beyond the caller's context.
type Timeouts struct {
	Embed    time.Duration
	Generate time.Duration
	Store    time.Duration
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// storeError tags a store failure with ErrProviderTimeout when it ran out of time.
func storeError(err error) error {
	if err != nil && models.IsTimeout(err) {
		return fmt.Errorf("%w: %w", models.ErrProviderTimeout, err)
	}
	return err
}
