package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/dealsight/internal/metrics"
	"github.com/raphaelgruber/dealsight/internal/models"
	"github.com/raphaelgruber/dealsight/internal/service"
)

// Theme holds the color scheme for terminal output.
type Theme struct {
	Heading lipgloss.Color
	Score   lipgloss.Color
	Success lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Heading: lipgloss.Color("#5FAFD7"), // light blue
	Score:   lipgloss.Color("#FFAF00"), // amber
	Success: lipgloss.Color("#00D787"), // green
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) headingStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Heading).Bold(true)
}

func (t Theme) scoreStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Score)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// printHits writes one block per hit: rank, score, deal overview and the
// requested sections. Empty sections are omitted.
func printHits(w io.Writer, hits []models.SearchHit, sections []models.SectionKind) {
	t := defaultTheme
	if len(hits) == 0 {
		fmt.Fprintln(w, t.hintStyle().Render("No matching deals found."))
		return
	}

	fmt.Fprintf(w, "Found %d deals:\n\n", len(hits))
	for i, h := range hits {
		m := h.DecodedMetadata()
		title := fmt.Sprintf("%d. %s -> %s", i+1, orDash(m.Acquirer), orDash(m.Target))
		fmt.Fprintf(w, "%s  %s\n", t.headingStyle().Render(title), t.scoreStyle().Render(fmt.Sprintf("score %.4f", h.Score)))
		fmt.Fprintln(w, t.hintStyle().Render(fmt.Sprintf("   %s | %s | %s | %s", h.ID, orDash(m.Sector), orDash(m.Region), m.YearString())))

		for _, k := range sections {
			text := hitField(h, k)
			if strings.TrimSpace(text) == "" {
				continue
			}
			fmt.Fprintf(w, "   %s: %s\n", strings.ToUpper(string(k)), text)
		}
		if verbose {
			fmt.Fprintf(w, "   metadata: %s\n", h.Metadata)
		}
		fmt.Fprintln(w)
	}
}

// printAnswer writes the synthesized answer followed by its evidence ids.
func printAnswer(w io.Writer, st *models.SynthesisState) {
	t := defaultTheme
	fmt.Fprintln(w, t.headingStyle().Render("Integration lessons"))
	fmt.Fprintln(w, strings.TrimSpace(st.Answer))

	fmt.Fprintln(w)
	if !st.HasEvidence() {
		fmt.Fprintln(w, t.hintStyle().Render("No similar deals were found; the answer is not grounded in past deals."))
		return
	}
	fmt.Fprintln(w, t.hintStyle().Render(fmt.Sprintf("Based on %d deals:", len(st.Hits))))
	for _, h := range st.Hits {
		m := h.DecodedMetadata()
		fmt.Fprintln(w, t.hintStyle().Render(fmt.Sprintf("  %s  %s -> %s (%.4f)", h.ID, orDash(m.Acquirer), orDash(m.Target), h.Score)))
	}
}

// printIngestResult summarizes an ingestion run.
func printIngestResult(w io.Writer, res *service.IngestResult, collection string, dryRun bool) {
	t := defaultTheme
	verb := "Stored"
	if dryRun {
		verb = "Would store"
	}
	fmt.Fprintln(w, t.successStyle().Render(fmt.Sprintf("%s %d deals in %s", verb, res.Stored(), collection)))
	fmt.Fprintf(w, "  sections read:      %d\n", res.Sections)
	fmt.Fprintf(w, "  sections dropped:   %d\n", res.Dropped)
	fmt.Fprintf(w, "  duplicate sections: %d\n", res.Duplicates)
	fmt.Fprintf(w, "  deals skipped:      %d\n", res.Skipped)
	fmt.Fprintf(w, "  fields truncated:   %d\n", res.Truncated)
	fmt.Fprintln(w, t.hintStyle().Render("  run "+res.RunID))
}

// printStats displays runtime statistics collected during the command.
func printStats(w io.Writer, s metrics.Snapshot) {
	fmt.Fprintln(w, defaultTheme.headingStyle().Render("Statistics"))
	fmt.Fprintf(w, "Uptime: %.1f seconds\n", s.UptimeSeconds)

	for _, op := range []struct {
		name string
		snap *metrics.OperationSnapshot
	}{
		{"Embeddings", s.Embedding},
		{"LLM Generate", s.LLMGenerate},
		{"DB Insert", s.DBInsert},
		{"DB Search", s.DBSearch},
	} {
		if op.snap == nil {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", op.name)
		fmt.Fprintf(w, "  Count: %d, Avg: %.1fms, Min: %dms, Max: %dms\n",
			op.snap.Count, op.snap.AvgTimeMs, op.snap.MinTimeMs, op.snap.MaxTimeMs)
		if op.snap.TotalInputTokens != nil && op.snap.TotalOutputTokens != nil {
			fmt.Fprintf(w, "  Tokens: %d in, %d out\n", *op.snap.TotalInputTokens, *op.snap.TotalOutputTokens)
		}
	}
}

func hitField(h models.SearchHit, k models.SectionKind) string {
	switch k {
	case models.SectionSummary:
		return h.Summary
	case models.SectionRisks:
		return h.Risks
	case models.SectionOutcome:
		return h.Outcome
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
