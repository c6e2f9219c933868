// Package testutil provides in-memory doubles for the embedding provider,
// vector store and language model.
package testutil

import (
	"context"
	"fmt"
	"hash/fnv"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/raphaelgruber/dealsight/internal/db"
	"github.com/raphaelgruber/dealsight/internal/embedding"
	"github.com/raphaelgruber/dealsight/internal/models"
)

// FakeEmbedder hashes lowercase word tokens into a bag-of-words vector and
// normalizes it. Identical texts embed identically; overlapping texts score higher.
type FakeEmbedder struct {
	Dim int
	Err error // returned by every call when set

	mu         sync.Mutex
	BatchCalls int
	BatchSizes []int
}

var _ embedding.Embedder = (*FakeEmbedder)(nil)

// NewFakeEmbedder returns a FakeEmbedder producing dim-length vectors.
func NewFakeEmbedder(dim int) *FakeEmbedder {
	return &FakeEmbedder{Dim: dim}
}

func (f *FakeEmbedder) Model() string  { return "fake-bow" }
func (f *FakeEmbedder) Dimension() int { return f.Dim }

func (f *FakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	return f.vector(text), nil
}

func (f *FakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.BatchCalls++
	f.BatchSizes = append(f.BatchSizes, len(texts))
	f.mu.Unlock()

	if err := f.check(ctx); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *FakeEmbedder) check(ctx context.Context) error {
	if f.Err != nil {
		return f.Err
	}
	return ctx.Err()
}

func (f *FakeEmbedder) vector(text string) []float32 {
	v := make([]float32, f.Dim)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		v[int(h.Sum32())%f.Dim]++
	}
	return embedding.Normalize(v)
}

// FakeGenerator returns a canned answer and records every prompt.
type FakeGenerator struct {
	Answer string
	Err    error

	mu      sync.Mutex
	Prompts []string
}

// Generate records prompt and returns Answer or Err.
func (g *FakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.Prompts = append(g.Prompts, prompt)
	g.mu.Unlock()

	if g.Err != nil {
		return "", g.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return g.Answer, nil
}

// LastPrompt returns the most recent prompt, or "" when none was sent.
func (g *FakeGenerator) LastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Prompts) == 0 {
		return ""
	}
	return g.Prompts[len(g.Prompts)-1]
}

type memCollection struct {
	dim     int
	nextID  int
	records []storedDeal
}

type storedDeal struct {
	id     string
	record models.DealRecord
}

// MemoryStore is an exact brute-force vector store with the same collection
// semantics as the SurrealDB adapter.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memCollection

	// InsertErr and SearchErr are returned by the matching calls when set.
	InsertErr error
	SearchErr error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (m *MemoryStore) EnsureCollection(_ context.Context, name string, dim int) error {
	if err := db.ValidateCollection(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		m.collections[name] = &memCollection{dim: dim}
	}
	return nil
}

func (m *MemoryStore) HasCollection(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.collections[name]
	return ok, nil
}

func (m *MemoryStore) CollectionDimension(_ context.Context, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}
	return c.dim, nil
}

func (m *MemoryStore) InsertDeals(_ context.Context, name string, records []models.DealRecord, replace bool) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}

	incoming := make(map[string]bool, len(records))
	for _, r := range records {
		if incoming[r.DealID] {
			return fmt.Errorf("%w: %s", db.ErrDealAlreadyExists, r.DealID)
		}
		incoming[r.DealID] = true
	}

	kept := c.records
	if replace {
		kept = slices.DeleteFunc(slices.Clone(c.records), func(s storedDeal) bool {
			return incoming[s.record.DealID]
		})
	} else {
		for _, s := range c.records {
			if incoming[s.record.DealID] {
				return fmt.Errorf("%w: %s", db.ErrDealAlreadyExists, s.record.DealID)
			}
		}
	}

	for _, r := range records {
		if len(r.Embedding) != c.dim {
			return fmt.Errorf("embedding dimension %d does not match collection %s (%d)", len(r.Embedding), name, c.dim)
		}
		c.nextID++
		kept = append(kept, storedDeal{id: fmt.Sprintf("%s:%d", name, c.nextID), record: r})
	}
	c.records = kept
	return nil
}

func (m *MemoryStore) SearchDeals(_ context.Context, name string, q db.DealQuery) ([]models.SearchHit, error) {
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
	}

	var hits []models.SearchHit
	for _, s := range c.records {
		r := s.record
		if q.Sector != nil && r.Metadata.Sector != *q.Sector {
			continue
		}
		if q.Section != nil && r.Field(*q.Section) == "" {
			continue
		}
		blob, err := r.Metadata.Encode()
		if err != nil {
			return nil, err
		}
		hits = append(hits, models.SearchHit{
			ID:       s.id,
			Score:    dot(q.Embedding, r.Embedding),
			Summary:  r.Summary,
			Risks:    r.Risks,
			Outcome:  r.Outcome,
			Metadata: blob,
		})
	}

	slices.SortStableFunc(hits, func(a, b models.SearchHit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	if hits == nil {
		hits = []models.SearchHit{}
	}
	return hits, nil
}

// Count returns the number of records in a collection.
func (m *MemoryStore) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.collections[name]; ok {
		return len(c.records)
	}
	return 0
}

// Records returns a copy of the stored records of a collection in insert order.
func (m *MemoryStore) Records(name string) []models.DealRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return nil
	}
	out := make([]models.DealRecord, len(c.records))
	for i, s := range c.records {
		out[i] = s.record
	}
	return out
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range min(len(a), len(b)) {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
