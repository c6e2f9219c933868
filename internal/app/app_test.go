package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/dealsight/internal/config"
	"github.com/raphaelgruber/dealsight/internal/metrics"
)

func TestConfigMapping(t *testing.T) {
	cfg := config.Default()
	cfg.SurrealDBURL = "wss://db.example.com/rpc"
	cfg.EmbedProvider = config.ProviderOpenAI
	cfg.OpenAIAPIKey = "sk-test"
	cfg.LLMProvider = config.ProviderBedrock
	cfg.AWSRegion = "eu-west-1"
	cfg.DBTimeout = 7 * time.Second
	mc := metrics.NewCollector()

	d := dbConfig(cfg)
	assert.Equal(t, "wss://db.example.com/rpc", d.URL)
	assert.Equal(t, cfg.SurrealDBNamespace, d.Namespace)

	e := embeddingConfig(cfg, mc, nil)
	assert.Equal(t, config.ProviderOpenAI, e.Provider)
	assert.Equal(t, "sk-test", e.OpenAIAPIKey)
	assert.Equal(t, cfg.EmbedDimension, e.Dimension)
	assert.Same(t, mc, e.Metrics)

	l := llmConfig(cfg, mc, nil)
	assert.Equal(t, config.ProviderBedrock, l.Provider)
	assert.Equal(t, "eu-west-1", l.AWSRegion)
	assert.Equal(t, 512, l.MaxTokens)
	assert.InDelta(t, 0.9, l.TopP, 1e-9)

	to := timeouts(cfg)
	assert.Equal(t, 7*time.Second, to.Store)
	assert.Equal(t, cfg.LLMTimeout, to.Generate)
}

func TestNewFailsWithoutDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.SurrealDBURL = "localhost:8000"
	cfg.DBTimeout = time.Second

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "connect to database")
}
