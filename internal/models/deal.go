package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SectionKind identifies one narrative file of a deal case folder.
type SectionKind string

const (
	SectionSummary SectionKind = "summary"
	SectionRisks   SectionKind = "risks"
	SectionOutcome SectionKind = "outcome"
)

// SectionKindKey is the metadata key that tags a section with its kind.
const SectionKindKey = "section_kind"

// DealIDKey is the metadata key holding the stable deal identifier.
const DealIDKey = "deal_id"

// MaxFieldLength is the maximum rune length of every stored string field.
const MaxFieldLength = 512

// coreMetadataKeys are the keys kept when a metadata blob must be compacted.
var coreMetadataKeys = []string{DealIDKey, "acquirer", "target", "sector", "region", "year"}

// SectionKinds returns all kinds in canonical order (summary, risks, outcome).
func SectionKinds() []SectionKind {
	return []SectionKind{SectionSummary, SectionRisks, SectionOutcome}
}

// ParseSectionKind validates a section kind string.
func ParseSectionKind(s string) (SectionKind, error) {
	switch k := SectionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case SectionSummary, SectionRisks, SectionOutcome:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown section kind %q (want summary, risks or outcome)", ErrConfiguration, s)
	}
}

// DealMetadata is the structured view of a deal's metadata.json.
// Raw keeps every key from the source file so the stored blob is lossless.
type DealMetadata struct {
	DealID   string
	Acquirer string
	Target   string
	Sector   string
	Region   string
	Year     *int
	Raw      map[string]any
}

// MetadataFromMap builds typed metadata from a decoded JSON object.
// The map is copied; later changes to m do not affect the result.
func MetadataFromMap(m map[string]any) DealMetadata {
	raw := make(map[string]any, len(m))
	for k, v := range m {
		raw[k] = v
	}
	return DealMetadata{
		DealID:   stringValue(raw[DealIDKey]),
		Acquirer: stringValue(raw["acquirer"]),
		Target:   stringValue(raw["target"]),
		Sector:   stringValue(raw["sector"]),
		Region:   stringValue(raw["region"]),
		Year:     intValue(raw["year"]),
		Raw:      raw,
	}
}

// DecodeMetadata parses a stored metadata blob. Numbers stay json.Number so
// large integer ids keep every digit.
func DecodeMetadata(blob string) (DealMetadata, error) {
	dec := json.NewDecoder(strings.NewReader(blob))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return DealMetadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return MetadataFromMap(m), nil
}

// Encode serializes the raw metadata as JSON (keys sorted by encoding/json).
func (m DealMetadata) Encode() (string, error) {
	raw := m.Raw
	if raw == nil {
		raw = map[string]any{}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

// Core returns a copy holding only the typed keys, dropping every extra key.
func (m DealMetadata) Core() DealMetadata {
	raw := make(map[string]any, len(coreMetadataKeys))
	for _, k := range coreMetadataKeys {
		if v, ok := m.Raw[k]; ok {
			raw[k] = v
		}
	}
	return MetadataFromMap(raw)
}

// WithoutKey returns a copy of the metadata with key removed from Raw.
func (m DealMetadata) WithoutKey(key string) DealMetadata {
	raw := make(map[string]any, len(m.Raw))
	for k, v := range m.Raw {
		if k != key {
			raw[k] = v
		}
	}
	return MetadataFromMap(raw)
}

// YearString renders the year for prompts and terminal output.
func (m DealMetadata) YearString() string {
	if m.Year != nil {
		return strconv.Itoa(*m.Year)
	}
	if v := stringValue(m.Raw["year"]); v != "" {
		return v
	}
	return "unknown"
}

// DealSection is one narrative fragment of a deal, as read from disk.
type DealSection struct {
	Text     string
	Kind     SectionKind
	Metadata DealMetadata
}

// DealRecord is the stored unit of knowledge, one per deal_id.
type DealRecord struct {
	DealID    string
	Summary   string
	Risks     string
	Outcome   string
	Metadata  DealMetadata
	Embedding []float32
}

// Field returns the narrative text for kind.
func (r *DealRecord) Field(kind SectionKind) string {
	switch kind {
	case SectionSummary:
		return r.Summary
	case SectionRisks:
		return r.Risks
	case SectionOutcome:
		return r.Outcome
	}
	return ""
}

// SetField assigns text to the narrative field for kind.
func (r *DealRecord) SetField(kind SectionKind, text string) {
	switch kind {
	case SectionSummary:
		r.Summary = text
	case SectionRisks:
		r.Risks = text
	case SectionOutcome:
		r.Outcome = text
	}
}

// Sections lists the kinds that carry non-blank text, in canonical order.
func (r *DealRecord) Sections() []SectionKind {
	kinds := make([]SectionKind, 0, 3)
	for _, k := range SectionKinds() {
		if hasText(r.Field(k)) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// EmbeddingText is the canonical embedding input: each non-blank field under a
// labeled header, in summary, risks, outcome order, trimmed.
// Empty when all three fields are blank.
func (r *DealRecord) EmbeddingText() string {
	var b strings.Builder
	for _, k := range SectionKinds() {
		text := strings.TrimSpace(r.Field(k))
		if text == "" {
			continue
		}
		b.WriteString(strings.ToUpper(string(k)))
		b.WriteString(":\n")
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// SearchHit is one ranked match from a similarity query.
type SearchHit struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Summary  string  `json:"summary"`
	Risks    string  `json:"risks"`
	Outcome  string  `json:"outcome"`
	Metadata string  `json:"metadata"` // verbatim stored JSON blob
}

// DecodedMetadata parses the hit's metadata blob. A blob that does not parse
// yields empty metadata rather than an error so rendering never fails.
func (h SearchHit) DecodedMetadata() DealMetadata {
	m, err := DecodeMetadata(h.Metadata)
	if err != nil {
		return MetadataFromMap(nil)
	}
	return m
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<63 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func intValue(v any) *int {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && math.Abs(t) <= math.MaxInt32 {
			n := int(t)
			return &n
		}
	case json.Number:
		if n, err := strconv.Atoi(t.String()); err == nil {
			return &n
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return &n
		}
	}
	return nil
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}
