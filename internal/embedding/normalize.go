package embedding

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/raphaelgruber/dealsight/internal/metrics"
)

// Normalize returns v scaled to unit L2 norm. Zero vectors are returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// normalizing wraps an Embedder so stored and query vectors are both unit
// length, making inner product equal to cosine similarity.
type normalizing struct {
	inner   Embedder
	metrics metrics.Recorder
	logger  *slog.Logger
}

// Normalized wraps e with normalization, timing and debug logging.
// rec and logger may be nil.
func Normalized(e Embedder, rec metrics.Recorder, logger *slog.Logger) Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &normalizing{inner: e, metrics: rec, logger: logger}
}

func (n *normalizing) Model() string  { return n.inner.Model() }
func (n *normalizing) Dimension() int { return n.inner.Dimension() }

func (n *normalizing) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := n.inner.Embed(ctx, text)
	metrics.Since(n.metrics, metrics.OpEmbedding, start)
	if err != nil {
		n.logger.Warn("embedding failed", "model", n.inner.Model(), "text_len", len(text), "error", err)
		return nil, err
	}
	n.logger.Debug("embedding complete", "model", n.inner.Model(), "text_len", len(text), "duration_ms", time.Since(start).Milliseconds())
	return Normalize(vec), nil
}

func (n *normalizing) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := n.inner.EmbedBatch(ctx, texts)
	metrics.Since(n.metrics, metrics.OpEmbedding, start)
	if err != nil {
		n.logger.Warn("batch embedding failed", "model", n.inner.Model(), "count", len(texts), "error", err)
		return nil, err
	}
	n.logger.Debug("batch embedding complete", "model", n.inner.Model(), "count", len(texts), "duration_ms", time.Since(start).Milliseconds())

	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		out[i] = Normalize(v)
	}
	return out, nil
}
