package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raphaelgruber/dealsight/internal/models"
)

// DefaultSynthesisTopK is the number of deals retrieved as evidence.
const DefaultSynthesisTopK = 6

// Retriever is the search operation the synthesizer depends on.
type Retriever interface {
	Search(ctx context.Context, opts SearchOptions) ([]models.SearchHit, error)
}

var _ Retriever = (*SearchService)(nil)

// SynthesisOptions fixes how evidence is retrieved for every query.
type SynthesisOptions struct {
	Collection   string
	TopK         int    // <= 0 uses DefaultSynthesisTopK
	Sector       string // optional default filter
	DocumentType string // optional default filter
}

// Synthesizer runs the retrieve then answer flow for one query at a time.
type Synthesizer struct {
	retriever Retriever
	generator Generator
	opts      SynthesisOptions
	timeout   time.Duration
	logger    *slog.Logger
}

// NewSynthesizer creates a synthesizer. generateTimeout bounds the model call.
func NewSynthesizer(retriever Retriever, generator Generator, opts SynthesisOptions, generateTimeout time.Duration, logger *slog.Logger) *Synthesizer {
	if opts.TopK <= 0 {
		opts.TopK = DefaultSynthesisTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{retriever: retriever, generator: generator, opts: opts, timeout: generateTimeout, logger: logger}
}

// Run answers query from retrieved deal evidence. On success the returned
// state is at StageDone with a non-empty answer. Retrieval errors are
// returned unchanged; model failures wrap models.ErrSynthesis.
func (s *Synthesizer) Run(ctx context.Context, query string) (*models.SynthesisState, error) {
	st := models.NewSynthesisState(query)

	if err := s.retrieve(ctx, st); err != nil {
		return nil, err
	}
	if err := s.answer(ctx, st); err != nil {
		return nil, err
	}
	st.Stage = models.StageDone
	return st, nil
}

func (s *Synthesizer) retrieve(ctx context.Context, st *models.SynthesisState) error {
	hits, err := s.retriever.Search(ctx, SearchOptions{
		Query:        st.Query,
		Collection:   s.opts.Collection,
		TopK:         s.opts.TopK,
		Sector:       s.opts.Sector,
		DocumentType: s.opts.DocumentType,
	})
	if err != nil {
		return err
	}

	st.Hits = hits
	if len(hits) == 0 {
		st.Context = []string{models.NoEvidenceContext}
	} else {
		st.Context = make([]string, len(hits))
		for i, h := range hits {
			st.Context[i] = FormatHit(h)
		}
	}
	st.Stage = models.StageRetrieved
	s.logger.Debug("evidence retrieved", "hits", len(hits))
	return nil
}

func (s *Synthesizer) answer(ctx context.Context, st *models.SynthesisState) error {
	prompt := BuildPrompt(st.Query, st.Context)

	genCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.generator.Generate(genCtx, prompt)
	if err != nil {
		return models.WrapProviderError(models.ErrSynthesis, err)
	}
	if strings.TrimSpace(out) == "" {
		return fmt.Errorf("%w: model returned an empty answer", models.ErrSynthesis)
	}

	st.Answer = out
	st.Stage = models.StageAnswered
	return nil
}

// FormatHit renders one hit as an evidence block with the deal overview,
// identified risks and observed outcome.
func FormatHit(h models.SearchHit) string {
	m := h.DecodedMetadata()
	var b strings.Builder
	b.WriteString("DEAL OVERVIEW:\n")
	fmt.Fprintf(&b, "- Acquirer: %s\n", orUnknown(m.Acquirer))
	fmt.Fprintf(&b, "- Target: %s\n", orUnknown(m.Target))
	fmt.Fprintf(&b, "- Sector: %s\n", orUnknown(m.Sector))
	fmt.Fprintf(&b, "- Region: %s\n", orUnknown(m.Region))
	fmt.Fprintf(&b, "- Year: %s\n\n", m.YearString())
	b.WriteString("IDENTIFIED RISKS:\n")
	b.WriteString(orNone(h.Risks))
	b.WriteString("\n\nOBSERVED OUTCOME:\n")
	b.WriteString(orNone(h.Outcome))
	return b.String()
}

const advisorPrompt = `You are a senior M&A integration advisor reviewing multiple completed acquisitions.

Your objective is to synthesize insights across deals, not to summarize individual transactions.

Using the evidence below:
- Identify recurring integration risk patterns
- Explicitly link those risks to observed post-merger outcomes
- Derive clear, actionable lessons that would materially improve future M&A integrations

Question:
%s

Context:
%s

Guidelines:
- Base conclusions on patterns observed across multiple deals
- When similar risks appear in different sectors, treat them as systemic
- Write a structured analytical response with short paragraphs
- Each lesson should clearly state: risk -> consequence -> lesson learned

Write a complete analytical answer. Do not be overly brief.

Answer:`

// BuildPrompt joins the context blocks with blank lines and places them in the
// advisor instructions.
func BuildPrompt(query string, context []string) string {
	return fmt.Sprintf(advisorPrompt, strings.TrimSpace(query), strings.Join(context, "\n\n"))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none recorded)"
	}
	return s
}
