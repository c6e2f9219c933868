package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/dealsight/internal/db"
	"github.com/raphaelgruber/dealsight/internal/models"
	"github.com/raphaelgruber/dealsight/internal/parser"
	"github.com/raphaelgruber/dealsight/internal/testutil"
)

const (
	testCollection = "deals_test"
	testDim        = 64
)

func section(dealID string, kind models.SectionKind, text string, extra map[string]any) models.DealSection {
	raw := map[string]any{models.SectionKindKey: string(kind)}
	if dealID != "" {
		raw[models.DealIDKey] = dealID
	}
	for k, v := range extra {
		raw[k] = v
	}
	return models.DealSection{Text: text, Kind: kind, Metadata: models.MetadataFromMap(raw)}
}

func newIngest(store VectorStore, emb Embedder) *IngestService {
	return NewIngestService(store, emb, Timeouts{}, nil)
}

func TestIngestOneRecordPerDeal(t *testing.T) {
	store := testutil.NewMemoryStore()
	svc := newIngest(store, testutil.NewFakeEmbedder(testDim))

	sections := []models.DealSection{
		section("A", models.SectionSummary, "Acme acquires Widgets", nil),
		section("B", models.SectionRisks, "Key staff attrition", nil),
		section("A", models.SectionRisks, "ERP migration risk", nil),
		section("A", models.SectionOutcome, "Synergies delayed", nil),
		section("C", models.SectionSummary, "Gamma merges with Delta", nil),
	}

	res, err := svc.Ingest(context.Background(), sections, testCollection, IngestOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 5, res.Sections)
	assert.Equal(t, []string{"A", "B", "C"}, res.DealIDs)
	assert.Equal(t, 3, store.Count(testCollection))

	records := store.Records(testCollection)
	assert.Equal(t, "Acme acquires Widgets", records[0].Summary)
	assert.Equal(t, "ERP migration risk", records[0].Risks)
	assert.Equal(t, "Synergies delayed", records[0].Outcome)
	assert.NotContains(t, records[0].Metadata.Raw, models.SectionKindKey)
}

func TestIngestSingleBatchedEmbedCall(t *testing.T) {
	emb := testutil.NewFakeEmbedder(testDim)
	svc := newIngest(testutil.NewMemoryStore(), emb)

	_, err := svc.Ingest(context.Background(), []models.DealSection{
		section("A", models.SectionSummary, "a", nil),
		section("B", models.SectionSummary, "b", nil),
		section("C", models.SectionSummary, "c", nil),
	}, testCollection, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, emb.BatchCalls)
	assert.Equal(t, []int{3}, emb.BatchSizes)
}

func TestIngestBatchingDoesNotChangeVectors(t *testing.T) {
	emb := testutil.NewFakeEmbedder(testDim)
	sections := []models.DealSection{
		section("A", models.SectionSummary, "Acme acquires Widgets", nil),
		section("B", models.SectionRisks, "Key staff attrition", nil),
	}

	batched := testutil.NewMemoryStore()
	_, err := newIngest(batched, emb).Ingest(context.Background(), sections, testCollection, IngestOptions{})
	require.NoError(t, err)

	single := testutil.NewMemoryStore()
	for _, s := range sections {
		_, err := newIngest(single, emb).Ingest(context.Background(), []models.DealSection{s}, testCollection, IngestOptions{})
		require.NoError(t, err)
	}

	b, s := batched.Records(testCollection), single.Records(testCollection)
	require.Len(t, s, len(b))
	for i := range b {
		assert.Equal(t, b[i].Embedding, s[i].Embedding)
	}
}

func TestIngestDropsSectionsWithoutDealID(t *testing.T) {
	store := testutil.NewMemoryStore()
	res, err := newIngest(store, testutil.NewFakeEmbedder(testDim)).Ingest(context.Background(), []models.DealSection{
		section("", models.SectionSummary, "orphan", nil),
		section("A", models.SectionSummary, "kept", nil),
	}, testCollection, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 1, store.Count(testCollection))
}

func TestIngestDuplicateSectionLastWriteWins(t *testing.T) {
	store := testutil.NewMemoryStore()
	res, err := newIngest(store, testutil.NewFakeEmbedder(testDim)).Ingest(context.Background(), []models.DealSection{
		section("A", models.SectionRisks, "first", nil),
		section("A", models.SectionRisks, "second", nil),
	}, testCollection, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, "second", store.Records(testCollection)[0].Risks)
}

func TestIngestSkipsEmptyDeals(t *testing.T) {
	store := testutil.NewMemoryStore()
	emb := testutil.NewFakeEmbedder(testDim)
	res, err := newIngest(store, emb).Ingest(context.Background(), []models.DealSection{
		section("A", models.SectionSummary, "   ", nil),
		section("B", models.SectionOutcome, "done", nil),
	}, testCollection, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"B"}, res.DealIDs)
	assert.Equal(t, []int{1}, emb.BatchSizes)
}

func TestAggregateKeepsAdjacentLargeDealIDs(t *testing.T) {
	var sections []models.DealSection
	for _, blob := range []string{`{"deal_id":9007199254740993}`, `{"deal_id":9007199254740992}`} {
		raw, err := parser.ParseMetadata([]byte(blob))
		require.NoError(t, err)
		raw[models.SectionKindKey] = string(models.SectionSummary)
		sections = append(sections, models.DealSection{
			Text:     "summary",
			Kind:     models.SectionSummary,
			Metadata: models.MetadataFromMap(raw),
		})
	}

	agg := Aggregate(sections, nil)
	require.Len(t, agg.Records, 2)
	assert.Zero(t, agg.Duplicates)
	assert.Equal(t, "9007199254740993", agg.Records[0].DealID)
	assert.Equal(t, "9007199254740992", agg.Records[1].DealID)
}

func TestIngestNoDealsStillEnsuresCollection(t *testing.T) {
	store := testutil.NewMemoryStore()
	emb := testutil.NewFakeEmbedder(testDim)
	res, err := newIngest(store, emb).Ingest(context.Background(), nil, testCollection, IngestOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.Stored())
	assert.Zero(t, emb.BatchCalls)

	ok, _ := store.HasCollection(context.Background(), testCollection)
	assert.True(t, ok)
}

func TestIngestEmbeddingFailureIsAtomic(t *testing.T) {
	store := testutil.NewMemoryStore()
	emb := testutil.NewFakeEmbedder(testDim)
	emb.Err = errors.New("model not loaded")

	_, err := newIngest(store, emb).Ingest(context.Background(), []models.DealSection{
		section("A", models.SectionSummary, "a", nil),
	}, testCollection, IngestOptions{})
	require.ErrorIs(t, err, models.ErrEmbedding)
	assert.NotErrorIs(t, err, models.ErrProviderTimeout)
	assert.Zero(t, store.Count(testCollection))
}

func TestIngestEmbeddingTimeout(t *testing.T) {
	emb := testutil.NewFakeEmbedder(testDim)
	emb.Err = context.DeadlineExceeded

	_, err := NewIngestService(testutil.NewMemoryStore(), emb, Timeouts{Embed: time.Second}, nil).
		Ingest(context.Background(), []models.DealSection{section("A", models.SectionSummary, "a", nil)}, testCollection, IngestOptions{})
	assert.ErrorIs(t, err, models.ErrEmbedding)
	assert.ErrorIs(t, err, models.ErrProviderTimeout)
}

func TestIngestStoreFailure(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.InsertErr = errors.New("connection reset")

	_, err := newIngest(store, testutil.NewFakeEmbedder(testDim)).Ingest(context.Background(), []models.DealSection{
		section("A", models.SectionSummary, "a", nil),
	}, testCollection, IngestOptions{})
	assert.ErrorContains(t, err, "connection reset")
}

func TestIngestDryRun(t *testing.T) {
	store := testutil.NewMemoryStore()
	emb := testutil.NewFakeEmbedder(testDim)
	res, err := newIngest(store, emb).Ingest(context.Background(), []models.DealSection{
		section("A", models.SectionSummary, "a", nil),
	}, testCollection, IngestOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored())
	assert.Zero(t, emb.BatchCalls)

	ok, _ := store.HasCollection(context.Background(), testCollection)
	assert.False(t, ok)
}

func TestIngestReplace(t *testing.T) {
	store := testutil.NewMemoryStore()
	svc := newIngest(store, testutil.NewFakeEmbedder(testDim))
	ctx := context.Background()

	_, err := svc.Ingest(ctx, []models.DealSection{section("A", models.SectionSummary, "v1", nil)}, testCollection, IngestOptions{})
	require.NoError(t, err)

	_, err = svc.Ingest(ctx, []models.DealSection{section("A", models.SectionSummary, "v2", nil)}, testCollection, IngestOptions{})
	require.ErrorIs(t, err, db.ErrDealAlreadyExists)

	_, err = svc.Ingest(ctx, []models.DealSection{section("A", models.SectionSummary, "v2", nil)}, testCollection, IngestOptions{Replace: true})
	require.NoError(t, err)

	records := store.Records(testCollection)
	require.Len(t, records, 1)
	assert.Equal(t, "v2", records[0].Summary)
}

func TestIngestTruncatesLongSections(t *testing.T) {
	store := testutil.NewMemoryStore()
	long := strings.Repeat("é", models.MaxFieldLength+10)

	res, err := newIngest(store, testutil.NewFakeEmbedder(testDim)).Ingest(context.Background(), []models.DealSection{
		section("A", models.SectionRisks, long, nil),
	}, testCollection, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Truncated)
	assert.Equal(t, models.MaxFieldLength, len([]rune(store.Records(testCollection)[0].Risks)))
}

func TestIngestInvalidCollection(t *testing.T) {
	_, err := newIngest(testutil.NewMemoryStore(), testutil.NewFakeEmbedder(testDim)).
		Ingest(context.Background(), nil, "bad-name", IngestOptions{})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func writeDealDir(t *testing.T, root, name, meta string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), []byte(meta), 0o644))
	for f, c := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte(c), 0o644))
	}
}

func TestIngestDirectory(t *testing.T) {
	root := t.TempDir()
	writeDealDir(t, root, "a", `{"deal_id":"A","sector":"Tech"}`, map[string]string{"summary.txt": "s", "risks.txt": "r"})
	writeDealDir(t, root, "b", `{"deal_id":"B","sector":"Healthcare"}`, map[string]string{"outcome.txt": "o"})

	store := testutil.NewMemoryStore()
	res, err := newIngest(store, testutil.NewFakeEmbedder(testDim)).IngestDirectory(context.Background(), root, testCollection, IngestOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, res.DealIDs)
	assert.Equal(t, 2, store.Count(testCollection))
}

func TestIngestDirectoryMalformedMetadataFailsWholeRun(t *testing.T) {
	root := t.TempDir()
	writeDealDir(t, root, "a_good", `{"deal_id":"A"}`, map[string]string{"summary.txt": "fine"})
	writeDealDir(t, root, "b_bad", `{"deal_id": "B",`, map[string]string{"summary.txt": "broken"})

	store := testutil.NewMemoryStore()
	_, err := newIngest(store, testutil.NewFakeEmbedder(testDim)).IngestDirectory(context.Background(), root, testCollection, IngestOptions{})
	require.ErrorIs(t, err, models.ErrMalformedMetadata)
	assert.Zero(t, store.Count(testCollection))
}

func TestIngestDirectoryMissingRoot(t *testing.T) {
	_, err := newIngest(testutil.NewMemoryStore(), testutil.NewFakeEmbedder(testDim)).
		IngestDirectory(context.Background(), filepath.Join(t.TempDir(), "absent"), testCollection, IngestOptions{})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestAggregateKeepsFirstMetadata(t *testing.T) {
	agg := Aggregate([]models.DealSection{
		section("A", models.SectionSummary, "s", map[string]any{"sector": "Tech"}),
		section("A", models.SectionRisks, "r", map[string]any{"sector": "Other"}),
	}, nil)
	require.Len(t, agg.Records, 1)
	assert.Equal(t, "Tech", agg.Records[0].Metadata.Sector)
}
