package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpDBSearch, 10*time.Millisecond)
	c.RecordTiming(OpDBSearch, 30*time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.DBSearch)
	assert.Equal(t, int64(2), snap.DBSearch.Count)
	assert.Equal(t, int64(40), snap.DBSearch.TotalTimeMs)
	assert.InDelta(t, 20.0, snap.DBSearch.AvgTimeMs, 0.001)
	assert.Equal(t, int64(10), snap.DBSearch.MinTimeMs)
	assert.Equal(t, int64(30), snap.DBSearch.MaxTimeMs)
	assert.Nil(t, snap.DBSearch.TotalInputTokens)

	assert.Nil(t, snap.Embedding)
	assert.Nil(t, snap.DBInsert)
}

func TestCollectorLLMUsage(t *testing.T) {
	c := NewCollector()
	c.RecordLLMUsage(OpLLMGenerate, time.Second, 100, 20)
	c.RecordLLMUsage(OpLLMGenerate, 3*time.Second, 300, 40)

	snap := c.Snapshot().LLMGenerate
	require.NotNil(t, snap)
	require.NotNil(t, snap.TotalInputTokens)
	assert.Equal(t, int64(400), *snap.TotalInputTokens)
	assert.Equal(t, int64(60), *snap.TotalOutputTokens)
	assert.Equal(t, int64(100), *snap.MinInputTokens)
	assert.Equal(t, int64(40), *snap.MaxOutputTokens)
	assert.InDelta(t, 30.0, *snap.AvgOutputTokens, 0.001)
}

func TestSinceNilRecorder(t *testing.T) {
	assert.NotPanics(t, func() { Since(nil, OpEmbedding, time.Now()) })

	c := NewCollector()
	Since(c, OpEmbedding, time.Now())
	assert.Equal(t, int64(1), c.Snapshot().Embedding.Count)
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordTiming(OpDBInsert, time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Snapshot().DBInsert.Count)
}
