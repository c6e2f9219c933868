// Package llm provides text generation through langchaingo providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/raphaelgruber/dealsight/internal/metrics"
)

// Provider names.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
)

// Config selects a provider and the sampling parameters used on every call.
type Config struct {
	Provider string
	Model    string

	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	AWSRegion       string

	MaxTokens   int
	Temperature float64
	TopP        float64

	Metrics metrics.Recorder
	Logger  *slog.Logger
}

// Model wraps a langchaingo model with fixed generation options.
type Model struct {
	llm       llms.Model
	modelName string
	opts      []llms.CallOption
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewModel creates an LLM model based on configuration.
func NewModel(ctx context.Context, cfg Config) (*Model, error) {
	var (
		model llms.Model
		err   error
	)

	switch cfg.Provider {
	case ProviderOllama, "":
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case ProviderBedrock:
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		model, err = bedrock.New(
			bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
			bedrock.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return NewModelFrom(model, cfg), nil
}

// NewModelFrom wraps an existing langchaingo model. Only the sampling,
// metrics and logger fields of cfg are used.
func NewModelFrom(model llms.Model, cfg Config) *Model {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var opts []llms.CallOption
	if cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(cfg.Temperature))
	}
	if cfg.TopP > 0 {
		opts = append(opts, llms.WithTopP(cfg.TopP))
	}

	return &Model{
		llm:       model,
		modelName: cfg.Model,
		opts:      opts,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// Generate sends prompt as a single user message and returns the raw completion.
// An empty completion is returned as-is; callers decide whether that is an error.
func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	start := time.Now()
	resp, err := m.llm.GenerateContent(ctx, messages, m.opts...)
	duration := time.Since(start)

	if err != nil {
		m.logger.Warn("generation failed", "model", m.modelName, "prompt_len", len(prompt), "duration_ms", duration.Milliseconds(), "error", err)
		return "", fmt.Errorf("generate: %w", wrapFatalError(err))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("generate: no response choices")
	}

	choice := resp.Choices[0]
	in, out := tokenUsage(choice.GenerationInfo)
	if m.metrics != nil {
		m.metrics.RecordLLMUsage(metrics.OpLLMGenerate, duration, in, out)
	}

	m.logger.Debug("generation complete",
		"model", m.modelName,
		"prompt_len", len(prompt),
		"answer_len", len(choice.Content),
		"input_tokens", in,
		"output_tokens", out,
		"duration_ms", duration.Milliseconds())

	return choice.Content, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// Providers report usage under different keys.
var (
	inputTokenKeys  = []string{"PromptTokens", "InputTokens", "input_tokens", "prompt_tokens"}
	outputTokenKeys = []string{"CompletionTokens", "OutputTokens", "output_tokens", "completion_tokens"}
)

func tokenUsage(info map[string]any) (int64, int64) {
	return firstInt(info, inputTokenKeys), firstInt(info, outputTokenKeys)
}

func firstInt(info map[string]any, keys []string) int64 {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
