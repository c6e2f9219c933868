package models

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		max     int
		want    string
		trimmed bool
	}{
		{"fits", "hello", 10, "hello", false},
		{"exact", "hello", 5, "hello", false},
		{"ascii cut", "hello world", 5, "hello", true},
		{"multibyte cut", "café résumé", 4, "café", true},
		{"zero", "abc", 0, "", true},
		{"empty", "", 3, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, trimmed := TruncateRunes(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.trimmed, trimmed)
		})
	}
}

func TestRecordIDString(t *testing.T) {
	s, err := RecordIDString(surrealmodels.RecordID{Table: "deals", ID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "deals:abc", s)

	_, err = RecordIDString(surrealmodels.RecordID{Table: "deals", ID: []byte{1}})
	assert.Error(t, err)
}

func TestMetadataFromMap(t *testing.T) {
	m := MetadataFromMap(map[string]any{
		"deal_id":  float64(42),
		"acquirer": " Acme ",
		"target":   "Widgets",
		"sector":   "Tech",
		"region":   "EMEA",
		"year":     float64(2019),
		"advisor":  "Bank",
	})

	assert.Equal(t, "42", m.DealID)
	assert.Equal(t, "Acme", m.Acquirer)
	assert.Equal(t, "Tech", m.Sector)
	require.NotNil(t, m.Year)
	assert.Equal(t, 2019, *m.Year)
	assert.Equal(t, "2019", m.YearString())
	assert.Equal(t, "Bank", m.Raw["advisor"])
}

func TestMetadataYearAsString(t *testing.T) {
	m := MetadataFromMap(map[string]any{"year": "2021"})
	require.NotNil(t, m.Year)
	assert.Equal(t, 2021, *m.Year)

	m = MetadataFromMap(map[string]any{"year": "FY21"})
	assert.Nil(t, m.Year)
	assert.Equal(t, "FY21", m.YearString())

	m = MetadataFromMap(nil)
	assert.Equal(t, "unknown", m.YearString())
}

func TestMetadataEncodeRoundTrip(t *testing.T) {
	m := MetadataFromMap(map[string]any{"deal_id": "d-1", "sector": "Tech", "section_kind": "risks"})
	stripped := m.WithoutKey(SectionKindKey)

	blob, err := stripped.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"deal_id":"d-1","sector":"Tech"}`, blob)

	decoded, err := DecodeMetadata(blob)
	require.NoError(t, err)
	assert.Equal(t, "d-1", decoded.DealID)
	assert.Equal(t, "Tech", decoded.Sector)

	_, err = DecodeMetadata("{not json")
	assert.Error(t, err)
}

func TestEmbeddingText(t *testing.T) {
	r := DealRecord{Summary: "S", Outcome: "O"}
	assert.Equal(t, "SUMMARY:\nS\n\nOUTCOME:\nO", r.EmbeddingText())
	assert.Equal(t, []SectionKind{SectionSummary, SectionOutcome}, r.Sections())

	empty := DealRecord{DealID: "x"}
	assert.Empty(t, empty.EmbeddingText())
	assert.Empty(t, empty.Sections())

	blank := DealRecord{DealID: "y", Summary: "   ", Risks: "\n\t", Outcome: " done "}
	assert.Equal(t, "OUTCOME:\ndone", blank.EmbeddingText())
	assert.Equal(t, []SectionKind{SectionOutcome}, blank.Sections())

	allBlank := DealRecord{DealID: "z", Summary: "  ", Outcome: "\n"}
	assert.Empty(t, allBlank.EmbeddingText())
	assert.Empty(t, allBlank.Sections())
}

func TestMetadataLargeNumbers(t *testing.T) {
	m, err := DecodeMetadata(`{"deal_id":9007199254740993,"year":2020,"value":1e30}`)
	require.NoError(t, err)
	assert.Equal(t, "9007199254740993", m.DealID)
	require.NotNil(t, m.Year)
	assert.Equal(t, 2020, *m.Year)

	blob, err := m.Encode()
	require.NoError(t, err)
	assert.Contains(t, blob, `"deal_id":9007199254740993`)

	huge := MetadataFromMap(map[string]any{"deal_id": 1e30, "year": 1e30})
	assert.Equal(t, "1000000000000000000000000000000", huge.DealID)
	assert.Nil(t, huge.Year)
}

func TestParseSectionKind(t *testing.T) {
	k, err := ParseSectionKind(" Risks ")
	require.NoError(t, err)
	assert.Equal(t, SectionRisks, k)

	_, err = ParseSectionKind("appendix")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestWrapProviderError(t *testing.T) {
	assert.NoError(t, WrapProviderError(ErrEmbedding, nil))

	err := WrapProviderError(ErrEmbedding, errors.New("boom"))
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.NotErrorIs(t, err, ErrProviderTimeout)

	err = WrapProviderError(ErrSynthesis, fmt.Errorf("generate: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrSynthesis)
	assert.ErrorIs(t, err, ErrProviderTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMetadataCore(t *testing.T) {
	m := MetadataFromMap(map[string]any{"deal_id": "d", "sector": "Energy", "notes": "long"})
	core := m.Core()
	assert.Equal(t, map[string]any{"deal_id": "d", "sector": "Energy"}, core.Raw)
	assert.Equal(t, "long", m.Raw["notes"], "original untouched")
}
