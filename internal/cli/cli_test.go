package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/dealsight/internal/metrics"
	"github.com/raphaelgruber/dealsight/internal/models"
	"github.com/raphaelgruber/dealsight/internal/service"
)

type recordingRetriever struct {
	hits  []models.SearchHit
	err   error
	calls []service.SearchOptions
}

func (r *recordingRetriever) Search(_ context.Context, opts service.SearchOptions) ([]models.SearchHit, error) {
	r.calls = append(r.calls, opts)
	return r.hits, r.err
}

var sampleHit = models.SearchHit{
	ID:       "ma_deals_knowledge:1",
	Score:    0.8731,
	Summary:  "Acme acquired Widgets to expand cloud software.",
	Risks:    "Engineering culture clash.",
	Metadata: `{"acquirer":"Acme","deal_id":"A1","sector":"Tech","target":"Widgets","year":2018}`,
}

func TestREPL(t *testing.T) {
	r := &recordingRetriever{hits: []models.SearchHit{sampleHit}}
	in := strings.NewReader("\n  culture clash  \n\nQUIT\nnever read\n")
	var out bytes.Buffer

	require.NoError(t, runREPL(context.Background(), in, &out, r, "deals"))

	require.Len(t, r.calls, 1, "blank lines re-prompt, quit stops")
	assert.Equal(t, service.SearchOptions{
		Query:        "culture clash",
		Collection:   "deals",
		TopK:         5,
		DocumentType: "risks",
	}, r.calls[0])

	assert.Contains(t, out.String(), "Result 1")
	assert.Contains(t, out.String(), "0.8731")
	assert.Contains(t, out.String(), `"deal_id":"A1"`)
	assert.Contains(t, out.String(), "Risks: Engineering culture clash.")
	assert.Equal(t, 2, strings.Count(out.String(), "No search query provided. Try again."))
}

func TestREPLContinuesAfterError(t *testing.T) {
	r := &recordingRetriever{err: errors.New("collection not found: deals")}
	var out bytes.Buffer

	require.NoError(t, runREPL(context.Background(), strings.NewReader("a\nb\n"), &out, r, "deals"))
	assert.Len(t, r.calls, 2, "EOF ends the loop")
	assert.Equal(t, 2, strings.Count(out.String(), "Error: collection not found"))
}

func TestREPLNoHits(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), strings.NewReader("x\nexit\n"), &out, &recordingRetriever{}, "deals"))
	assert.Contains(t, out.String(), "No matching deals found.")
}

func TestPrintHits(t *testing.T) {
	var out bytes.Buffer
	printHits(&out, []models.SearchHit{sampleHit}, models.SectionKinds())

	s := out.String()
	assert.Contains(t, s, "Found 1 deals")
	assert.Contains(t, s, "1. Acme -> Widgets")
	assert.Contains(t, s, "Tech | - | 2018")
	assert.Contains(t, s, "SUMMARY: Acme acquired Widgets")
	assert.Contains(t, s, "RISKS: Engineering culture clash.")
	assert.NotContains(t, s, "OUTCOME:", "empty sections are omitted")
}

func TestPrintHitsSingleSection(t *testing.T) {
	var out bytes.Buffer
	printHits(&out, []models.SearchHit{sampleHit}, sectionsToShow("risks"))
	assert.NotContains(t, out.String(), "SUMMARY:")
	assert.Contains(t, out.String(), "RISKS:")
}

func TestPrintAnswer(t *testing.T) {
	t.Run("with evidence", func(t *testing.T) {
		var out bytes.Buffer
		printAnswer(&out, &models.SynthesisState{
			Answer: "  Culture clash delays synergies.\n",
			Hits:   []models.SearchHit{sampleHit},
		})
		assert.Contains(t, out.String(), "Culture clash delays synergies.")
		assert.Contains(t, out.String(), "Based on 1 deals")
		assert.Contains(t, out.String(), "ma_deals_knowledge:1  Acme -> Widgets")
	})

	t.Run("without evidence", func(t *testing.T) {
		var out bytes.Buffer
		printAnswer(&out, &models.SynthesisState{Answer: "Nothing comparable."})
		assert.Contains(t, out.String(), "not grounded in past deals")
	})
}

func TestPrintIngestResult(t *testing.T) {
	var out bytes.Buffer
	printIngestResult(&out, &service.IngestResult{
		RunID:      "run-1",
		Sections:   7,
		Duplicates: 1,
		DealIDs:    []string{"A", "B"},
	}, "deals", true)

	assert.Contains(t, out.String(), "Would store 2 deals in deals")
	assert.Contains(t, out.String(), "sections read:      7")
	assert.Contains(t, out.String(), "run run-1")
}

func TestPrintStats(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordLLMUsage(metrics.OpLLMGenerate, 0, 120, 30)

	var out bytes.Buffer
	printStats(&out, c.Snapshot())
	assert.Contains(t, out.String(), "LLM Generate:")
	assert.Contains(t, out.String(), "Tokens: 120 in, 30 out")
	assert.NotContains(t, out.String(), "DB Search:")
}

func TestSectionsToShow(t *testing.T) {
	assert.Equal(t, models.SectionKinds(), sectionsToShow(""))
	assert.Equal(t, models.SectionKinds(), sectionsToShow("memo"))
	assert.Equal(t, []models.SectionKind{models.SectionOutcome}, sectionsToShow("Outcome"))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "dealsight "+Version+"\n", out.String())
}
