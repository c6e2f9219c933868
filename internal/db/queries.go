package db

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/raphaelgruber/dealsight/internal/metrics"
	"github.com/raphaelgruber/dealsight/internal/models"
)

// DealQuery is one similarity search against a collection.
type DealQuery struct {
	Embedding []float32
	Limit     int
	Ef        int // HNSW candidate breadth; raised to the candidate count when lower

	// Optional typed filters, ANDed together.
	Sector  *string
	Section *models.SectionKind
}

type hitRow struct {
	ID       surrealmodels.RecordID `json:"id"`
	Summary  string                 `json:"summary"`
	Risks    string                 `json:"risks"`
	Outcome  string                 `json:"outcome"`
	Metadata string                 `json:"metadata"`
	Score    float64                `json:"score"`
}

type countRow struct {
	Count int `json:"count"`
}

var dimensionPattern = regexp.MustCompile(`DIMENSION (\d+)`)

// EnsureCollection creates the collection table, fields and indexes if absent.
// Existing definitions are left untouched, including the embedding dimension.
func (c *Client) EnsureCollection(ctx context.Context, name string, dim int) error {
	if err := ValidateCollection(name); err != nil {
		return err
	}
	if dim <= 0 {
		return fmt.Errorf("%w: embedding dimension must be positive, got %d", models.ErrConfiguration, dim)
	}

	if _, err := surrealdb.Query[any](ctx, c.db, collectionSchema(name, dim), nil); err != nil {
		return fmt.Errorf("ensure collection %s: %w", name, wrapQueryError(err))
	}
	c.logger.Debug("collection ready", "collection", name, "dimension", dim)
	return nil
}

// HasCollection reports whether the collection table is defined.
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	if err := ValidateCollection(name); err != nil {
		return false, err
	}

	results, err := surrealdb.Query[map[string]any](ctx, c.db, "INFO FOR DB", nil)
	if err != nil {
		return false, fmt.Errorf("info for db: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return false, nil
	}

	tables, _ := (*results)[0].Result["tables"].(map[string]any)
	_, ok := tables[name]
	return ok, nil
}

// CollectionDimension returns the HNSW dimension declared for the collection.
// Returns models.ErrCollectionNotFound when the collection or its index is missing.
func (c *Client) CollectionDimension(ctx context.Context, name string) (int, error) {
	ok, err := c.HasCollection(ctx, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}

	results, err := surrealdb.Query[map[string]any](ctx, c.db, "INFO FOR TABLE "+name, nil)
	if err != nil {
		return 0, fmt.Errorf("info for table %s: %w", name, wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return 0, fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}

	indexes, _ := (*results)[0].Result["indexes"].(map[string]any)
	def, _ := indexes[name+"_embedding"].(string)
	m := dimensionPattern.FindStringSubmatch(def)
	if m == nil {
		return 0, fmt.Errorf("%w: %s has no embedding index", models.ErrCollectionNotFound, name)
	}
	return strconv.Atoi(m[1])
}

// InsertDeals writes records in a single transaction. With replace, existing
// records sharing a deal_id are deleted first inside the same transaction;
// without it a duplicate deal_id fails the whole batch with ErrDealAlreadyExists.
// Records are visible to searches once this returns.
func (c *Client) InsertDeals(ctx context.Context, name string, records []models.DealRecord, replace bool) error {
	if err := ValidateCollection(name); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, c.dealRow(r))
		ids = append(ids, r.DealID)
	}

	sql := "BEGIN TRANSACTION;\n"
	if replace {
		sql += fmt.Sprintf("DELETE %s WHERE deal_id IN $ids;\n", name)
	}
	sql += fmt.Sprintf("INSERT INTO %s $rows;\nCOMMIT TRANSACTION;", name)

	start := time.Now()
	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"ids":  ids,
		"rows": rows,
	})
	metrics.Since(c.metrics, metrics.OpDBInsert, start)
	if err != nil {
		return fmt.Errorf("insert deals into %s: %w", name, wrapQueryError(err))
	}

	c.logger.Debug("deals inserted", "collection", name, "count", len(rows), "replace", replace, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// dealRow maps a record to the stored document. The record id is left to the
// engine. year is omitted when unknown so the option<int> field stays NONE.
func (c *Client) dealRow(r models.DealRecord) map[string]any {
	sections := make([]string, 0, 3)
	for _, k := range r.Sections() {
		sections = append(sections, string(k))
	}

	row := map[string]any{
		"deal_id":   r.DealID,
		"summary":   r.Summary,
		"risks":     r.Risks,
		"outcome":   r.Outcome,
		"metadata":  c.metadataBlob(r),
		"acquirer":  r.Metadata.Acquirer,
		"target":    r.Metadata.Target,
		"sector":    r.Metadata.Sector,
		"region":    r.Metadata.Region,
		"sections":  sections,
		"embedding": r.Embedding,
	}
	if r.Metadata.Year != nil {
		row["year"] = *r.Metadata.Year
	}
	return row
}

// metadataBlob encodes the metadata within MaxFieldLength runes. Oversized
// blobs are compacted to the typed keys first and cut only as a last resort.
func (c *Client) metadataBlob(r models.DealRecord) string {
	blob, err := r.Metadata.Encode()
	if err == nil && utf8.RuneCountInString(blob) <= models.MaxFieldLength {
		return blob
	}

	compact, cerr := r.Metadata.Core().Encode()
	if cerr == nil && utf8.RuneCountInString(compact) <= models.MaxFieldLength {
		c.logger.Warn("metadata compacted to core keys", "deal_id", r.DealID, "original_len", utf8.RuneCountInString(blob), "error", err)
		return compact
	}

	cut, _ := models.TruncateRunes(compact, models.MaxFieldLength)
	c.logger.Warn("metadata truncated", "deal_id", r.DealID, "limit", models.MaxFieldLength)
	return cut
}

// SearchDeals returns up to q.Limit hits ordered by descending inner product.
// Candidates come from the HNSW index; filters are evaluated alongside it.
func (c *Client) SearchDeals(ctx context.Context, name string, q DealQuery) ([]models.SearchHit, error) {
	if err := ValidateCollection(name); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", models.ErrConfiguration, q.Limit)
	}

	candidates := q.Limit * 2
	ef := max(q.Ef, candidates)

	filter := ""
	vars := map[string]any{
		"emb":   q.Embedding,
		"limit": q.Limit,
	}
	if q.Sector != nil {
		filter += " AND sector = $sector"
		vars["sector"] = *q.Sector
	}
	if q.Section != nil {
		filter += " AND sections CONTAINS $section"
		vars["section"] = string(*q.Section)
	}

	sql := fmt.Sprintf(`
		SELECT id, summary, risks, outcome, metadata,
			vector::dot(embedding, $emb) AS score
		FROM %s
		WHERE embedding <|%d,%d|> $emb%s
		ORDER BY score DESC
		LIMIT $limit
	`, name, candidates, ef, filter)

	start := time.Now()
	results, err := surrealdb.Query[[]hitRow](ctx, c.db, sql, vars)
	metrics.Since(c.metrics, metrics.OpDBSearch, start)
	if err != nil {
		return nil, fmt.Errorf("search deals in %s: %w", name, wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.SearchHit{}, nil
	}

	rows := (*results)[0].Result
	hits := make([]models.SearchHit, 0, len(rows))
	for _, row := range rows {
		id, err := models.RecordIDString(row.ID)
		if err != nil {
			return nil, fmt.Errorf("search deals: %w", err)
		}
		hits = append(hits, models.SearchHit{
			ID:       id,
			Score:    row.Score,
			Summary:  row.Summary,
			Risks:    row.Risks,
			Outcome:  row.Outcome,
			Metadata: row.Metadata,
		})
	}
	return hits, nil
}

// CountDeals returns the number of records in the collection.
func (c *Client) CountDeals(ctx context.Context, name string) (int, error) {
	if err := ValidateCollection(name); err != nil {
		return 0, err
	}

	results, err := surrealdb.Query[[]countRow](ctx, c.db, fmt.Sprintf("SELECT count() AS count FROM %s GROUP ALL", name), nil)
	if err != nil {
		return 0, fmt.Errorf("count deals in %s: %w", name, wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

// DropCollection removes the collection table with its records and indexes.
// Dropping an absent collection is not an error.
func (c *Client) DropCollection(ctx context.Context, name string) error {
	if err := ValidateCollection(name); err != nil {
		return err
	}
	if _, err := surrealdb.Query[any](ctx, c.db, fmt.Sprintf("REMOVE TABLE IF EXISTS %s", name), nil); err != nil {
		return fmt.Errorf("drop collection %s: %w", name, wrapQueryError(err))
	}
	c.logger.Info("collection dropped", "collection", name)
	return nil
}
