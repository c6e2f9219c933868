// Package tools provides MCP tool handlers and registration.
package tools

import (
	"context"
	"log/slog"

	"github.com/raphaelgruber/dealsight/internal/metrics"
	"github.com/raphaelgruber/dealsight/internal/models"
	"github.com/raphaelgruber/dealsight/internal/service"
)

// Answerer runs one synthesis query.
type Answerer interface {
	Run(ctx context.Context, query string) (*models.SynthesisState, error)
}

var _ Answerer = (*service.Synthesizer)(nil)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Search      service.Retriever
	Synthesizer Answerer
	Metrics     *metrics.Collector
	Logger      *slog.Logger
}
