package models

// Stage tracks progress of a synthesis run.
type Stage string

const (
	StageStart     Stage = "start"
	StageRetrieved Stage = "retrieved"
	StageAnswered  Stage = "answered"
	StageDone      Stage = "done"
)

// NoEvidenceContext is the single context block used when retrieval finds nothing.
// It is passed to the answer stage like any other context.
const NoEvidenceContext = "No relevant deal information was found."

// SynthesisState is threaded through the retrieve and answer stages of one query.
type SynthesisState struct {
	Query   string
	Context []string // one formatted block per hit, descending score
	Hits    []SearchHit
	Answer  string
	Stage   Stage
}

// NewSynthesisState starts a run for query.
func NewSynthesisState(query string) *SynthesisState {
	return &SynthesisState{Query: query, Stage: StageStart}
}

// HasEvidence reports whether retrieval produced at least one hit.
func (s *SynthesisState) HasEvidence() bool {
	return len(s.Hits) > 0
}
