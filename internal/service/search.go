package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/dealsight/internal/db"
	"github.com/raphaelgruber/dealsight/internal/models"
)

// DefaultEf is the HNSW candidate breadth used when none is configured.
const DefaultEf = 40

// SearchService embeds queries and runs filtered similarity search.
type SearchService struct {
	store    VectorStore
	embedder Embedder
	ef       int
	timeouts Timeouts
	logger   *slog.Logger
}

// NewSearchService creates a new search service. ef <= 0 uses DefaultEf.
func NewSearchService(store VectorStore, embedder Embedder, ef int, timeouts Timeouts, logger *slog.Logger) *SearchService {
	if ef <= 0 {
		ef = DefaultEf
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{store: store, embedder: embedder, ef: ef, timeouts: timeouts, logger: logger}
}

// SearchOptions configures a search operation. Empty Sector and
// DocumentType impose no constraint.
type SearchOptions struct {
	Query        string
	Collection   string
	TopK         int
	Sector       string
	DocumentType string
}

// Search returns at most TopK hits ordered by descending score. Fewer hits,
// including none, is not an error.
func (s *SearchService) Search(ctx context.Context, opts SearchOptions) ([]models.SearchHit, error) {
	q, err := s.buildQuery(opts)
	if err != nil {
		return nil, err
	}

	// CollectionDimension reports ErrCollectionNotFound for a missing collection.
	dimCtx, cancelDim := withTimeout(ctx, s.timeouts.Store)
	dim, err := s.store.CollectionDimension(dimCtx, opts.Collection)
	cancelDim()
	if err != nil {
		return nil, storeError(err)
	}
	if dim != s.embedder.Dimension() {
		return nil, fmt.Errorf("%w: collection %s has dimension %d but embedder %s produces %d",
			models.ErrConfiguration, opts.Collection, dim, s.embedder.Model(), s.embedder.Dimension())
	}

	embedCtx, cancelEmbed := withTimeout(ctx, s.timeouts.Embed)
	vec, err := s.embedder.Embed(embedCtx, opts.Query)
	cancelEmbed()
	if err != nil {
		return nil, models.WrapProviderError(models.ErrEmbedding, err)
	}
	if len(vec) != dim {
		return nil, fmt.Errorf("%w: query embedding has dimension %d, collection expects %d", models.ErrConfiguration, len(vec), dim)
	}
	q.Embedding = vec

	// Each store call gets its own budget; embedding time is not charged to it.
	searchCtx, cancelSearch := withTimeout(ctx, s.timeouts.Store)
	hits, err := s.store.SearchDeals(searchCtx, opts.Collection, q)
	cancelSearch()
	if err != nil {
		return nil, storeError(err)
	}

	s.logger.Debug("search complete",
		"collection", opts.Collection,
		"top_k", opts.TopK,
		"sector", opts.Sector,
		"document_type", opts.DocumentType,
		"hits", len(hits))
	return hits, nil
}

func (s *SearchService) buildQuery(opts SearchOptions) (db.DealQuery, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return db.DealQuery{}, fmt.Errorf("%w: query must not be empty", models.ErrConfiguration)
	}
	if opts.TopK <= 0 {
		return db.DealQuery{}, fmt.Errorf("%w: top_k must be positive, got %d", models.ErrConfiguration, opts.TopK)
	}
	if err := db.ValidateCollection(opts.Collection); err != nil {
		return db.DealQuery{}, err
	}

	q := db.DealQuery{Limit: opts.TopK, Ef: s.ef}
	if sector := strings.TrimSpace(opts.Sector); sector != "" {
		q.Sector = &sector
	}
	if opts.DocumentType != "" {
		kind, err := models.ParseSectionKind(opts.DocumentType)
		if err != nil {
			return db.DealQuery{}, err
		}
		q.Section = &kind
	}
	return q, nil
}
