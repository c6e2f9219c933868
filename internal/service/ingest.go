package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/raphaelgruber/dealsight/internal/db"
	"github.com/raphaelgruber/dealsight/internal/models"
	"github.com/raphaelgruber/dealsight/internal/parser"
)

// IngestService aggregates deal sections into records and stores them.
type IngestService struct {
	store    VectorStore
	embedder Embedder
	timeouts Timeouts
	logger   *slog.Logger
}

// NewIngestService creates a new ingest service. logger may be nil.
func NewIngestService(store VectorStore, embedder Embedder, timeouts Timeouts, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{store: store, embedder: embedder, timeouts: timeouts, logger: logger}
}

// IngestOptions configures an ingestion run.
type IngestOptions struct {
	// Replace deletes stored records sharing a deal_id before inserting.
	Replace bool
	// DryRun aggregates and reports without embedding or storing.
	DryRun bool
}

// IngestResult summarizes an ingestion run.
type IngestResult struct {
	RunID      string
	Sections   int      // sections received
	Dropped    int      // sections without a deal_id
	Duplicates int      // same-kind sections overwritten within a deal
	Skipped    int      // deals with no narrative text
	Truncated  int      // fields cut to the stored length limit
	DealIDs    []string // stored (or, on dry run, storable) deals in first-seen order
}

// Stored returns the number of deals written (or that would be written).
func (r *IngestResult) Stored() int {
	return len(r.DealIDs)
}

// IngestDirectory builds sections from root and ingests them.
func (s *IngestService) IngestDirectory(ctx context.Context, root, collection string, opts IngestOptions) (*IngestResult, error) {
	sections, err := parser.BuildSections(root)
	if err != nil {
		return nil, err
	}
	return s.Ingest(ctx, sections, collection, opts)
}

// Ingest stores one record per distinct deal_id found in sections.
// The batch is atomic: any embedding or store failure leaves the collection
// as it was.
func (s *IngestService) Ingest(ctx context.Context, sections []models.DealSection, collection string, opts IngestOptions) (*IngestResult, error) {
	if err := db.ValidateCollection(collection); err != nil {
		return nil, err
	}

	result := &IngestResult{RunID: uuid.NewString(), Sections: len(sections)}
	logger := s.logger.With("run_id", result.RunID, "collection", collection)
	logger.Info("ingestion started", "sections", len(sections), "replace", opts.Replace, "dry_run", opts.DryRun)

	agg := Aggregate(sections, logger)
	result.Dropped = agg.Dropped
	result.Duplicates = agg.Duplicates

	records := make([]models.DealRecord, 0, len(agg.Records))
	for _, r := range agg.Records {
		if r.EmbeddingText() == "" {
			result.Skipped++
			logger.Debug("deal has no narrative text, skipping", "deal_id", r.DealID)
			continue
		}
		result.Truncated += truncateFields(&r, logger)
		records = append(records, r)
		result.DealIDs = append(result.DealIDs, r.DealID)
	}

	if opts.DryRun {
		logger.Info("dry run complete", "deals", result.Stored(), "skipped", result.Skipped)
		return result, nil
	}

	if len(records) > 0 {
		texts := make([]string, len(records))
		for i := range records {
			texts[i] = records[i].EmbeddingText()
		}

		embedCtx, cancel := withTimeout(ctx, s.timeouts.Embed)
		vectors, err := s.embedder.EmbedBatch(embedCtx, texts)
		cancel()
		if err != nil {
			return nil, models.WrapProviderError(models.ErrEmbedding, err)
		}
		if len(vectors) != len(records) {
			return nil, fmt.Errorf("%w: got %d vectors for %d deals", models.ErrEmbedding, len(vectors), len(records))
		}
		for i := range records {
			records[i].Embedding = vectors[i]
		}
	}

	storeCtx, cancel := withTimeout(ctx, s.timeouts.Store)
	defer cancel()

	if err := s.store.EnsureCollection(storeCtx, collection, s.embedder.Dimension()); err != nil {
		return nil, storeError(err)
	}
	if len(records) > 0 {
		if err := s.store.InsertDeals(storeCtx, collection, records, opts.Replace); err != nil {
			return nil, storeError(err)
		}
	}

	logger.Info("ingestion complete",
		"deals", result.Stored(),
		"dropped_sections", result.Dropped,
		"duplicate_sections", result.Duplicates,
		"skipped_deals", result.Skipped)
	return result, nil
}

// Aggregation is the outcome of grouping sections by deal.
type Aggregation struct {
	Records    []models.DealRecord // first-seen order
	Dropped    int
	Duplicates int
}

// Aggregate groups sections into one record per deal_id. A later section of a
// kind already seen for the same deal overwrites the earlier one and is
// logged at WARN. The record keeps the metadata of its first section, minus
// the section_kind tag.
func Aggregate(sections []models.DealSection, logger *slog.Logger) Aggregation {
	if logger == nil {
		logger = slog.Default()
	}

	var agg Aggregation
	index := make(map[string]int)
	seen := make(map[string]map[models.SectionKind]bool)

	for _, sec := range sections {
		id := sec.Metadata.DealID
		if id == "" {
			agg.Dropped++
			logger.Warn("section has no deal_id, dropping", "section_kind", sec.Kind)
			continue
		}

		i, ok := index[id]
		if !ok {
			i = len(agg.Records)
			index[id] = i
			seen[id] = make(map[models.SectionKind]bool, 3)
			agg.Records = append(agg.Records, models.DealRecord{
				DealID:   id,
				Metadata: sec.Metadata.WithoutKey(models.SectionKindKey),
			})
		}

		if seen[id][sec.Kind] {
			agg.Duplicates++
			logger.Warn("duplicate section for deal, keeping the later one", "deal_id", id, "section_kind", sec.Kind)
		}
		seen[id][sec.Kind] = true
		agg.Records[i].SetField(sec.Kind, sec.Text)
	}
	return agg
}

// truncateFields cuts narrative fields to MaxFieldLength runes and returns how
// many were cut.
func truncateFields(r *models.DealRecord, logger *slog.Logger) int {
	n := 0
	for _, k := range models.SectionKinds() {
		text, cut := models.TruncateRunes(r.Field(k), models.MaxFieldLength)
		if !cut {
			continue
		}
		n++
		r.SetField(k, text)
		logger.Warn("section truncated to stored limit", "deal_id", r.DealID, "section_kind", k, "limit", models.MaxFieldLength)
	}
	return n
}
