package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names shared by the embedding and LLM settings.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
)

// Config holds all configuration values.
// Values come from defaults, then an optional YAML file, then the environment.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"`

	// Deal corpus
	Collection string `yaml:"collection"`
	DealsPath  string `yaml:"deals_path"`

	// Embedding
	EmbedProvider  string `yaml:"embed_provider"`
	EmbedModel     string `yaml:"embed_model"`
	EmbedDimension int    `yaml:"embed_dimension"`
	OllamaHost     string `yaml:"ollama_host"`
	OpenAIAPIKey   string `yaml:"openai_api_key"`

	// Language model
	LLMProvider     string  `yaml:"llm_provider"`
	LLMModel        string  `yaml:"llm_model"`
	LLMMaxTokens    int     `yaml:"llm_max_tokens"`
	LLMTemperature  float64 `yaml:"llm_temperature"`
	LLMTopP         float64 `yaml:"llm_top_p"`
	AnthropicAPIKey string  `yaml:"anthropic_api_key"`
	AWSRegion       string  `yaml:"aws_region"`

	// Retrieval
	TopK                int    `yaml:"top_k"`
	SearchEf            int    `yaml:"search_ef"`
	DefaultSector       string `yaml:"default_sector"`
	DefaultDocumentType string `yaml:"default_document_type"`

	// Timeouts
	EmbedTimeout time.Duration `yaml:"embed_timeout"`
	LLMTimeout   time.Duration `yaml:"llm_timeout"`
	DBTimeout    time.Duration `yaml:"db_timeout"`

	// Logging
	LogFile     string     `yaml:"log_file"`
	LogLevelRaw string     `yaml:"log_level"`
	LogLevel    slog.Level `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "dealsight",
		SurrealDBDatabase:  "deals",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",
		SurrealDBAuthLevel: "root",

		Collection: "ma_deals_knowledge",
		DealsPath:  "data/deals",

		EmbedProvider:  ProviderOllama,
		EmbedModel:     "all-minilm:l6-v2",
		EmbedDimension: 384,
		OllamaHost:     "http://localhost:11434",

		LLMProvider:    ProviderOllama,
		LLMModel:       "llama3.2",
		LLMMaxTokens:   512,
		LLMTemperature: 0.2,
		LLMTopP:        0.9,

		TopK:     6,
		SearchEf: 40,

		EmbedTimeout: 30 * time.Second,
		LLMTimeout:   2 * time.Minute,
		DBTimeout:    30 * time.Second,

		LogFile:     "/tmp/dealsight.log",
		LogLevelRaw: "INFO",
		LogLevel:    slog.LevelInfo,
	}
}

// Load builds the configuration once at the program boundary.
// A .env file in the working directory is loaded into the environment first
// (existing variables win). path may be empty; DEALSIGHT_CONFIG is used then.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("DEALSIGHT_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.SurrealDBURL = getEnv("SURREALDB_URL", cfg.SurrealDBURL)
	cfg.SurrealDBNamespace = getEnv("SURREALDB_NAMESPACE", cfg.SurrealDBNamespace)
	cfg.SurrealDBDatabase = getEnv("SURREALDB_DATABASE", cfg.SurrealDBDatabase)
	cfg.SurrealDBUser = getEnv("SURREALDB_USER", cfg.SurrealDBUser)
	cfg.SurrealDBPass = getEnv("SURREALDB_PASS", cfg.SurrealDBPass)
	cfg.SurrealDBAuthLevel = getEnv("SURREALDB_AUTH_LEVEL", cfg.SurrealDBAuthLevel)

	cfg.Collection = getEnv("DEALSIGHT_COLLECTION", cfg.Collection)
	cfg.DealsPath = getEnv("DEALSIGHT_DEALS_PATH", cfg.DealsPath)

	cfg.EmbedProvider = getEnv("DEALSIGHT_EMBED_PROVIDER", cfg.EmbedProvider)
	cfg.EmbedModel = getEnv("DEALSIGHT_EMBED_MODEL", cfg.EmbedModel)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)

	cfg.LLMProvider = getEnv("DEALSIGHT_LLM_PROVIDER", cfg.LLMProvider)
	cfg.LLMModel = getEnv("DEALSIGHT_LLM_MODEL", cfg.LLMModel)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)

	cfg.DefaultSector = getEnv("DEALSIGHT_DEFAULT_SECTOR", cfg.DefaultSector)
	cfg.DefaultDocumentType = getEnv("DEALSIGHT_DEFAULT_DOCUMENT_TYPE", cfg.DefaultDocumentType)

	cfg.LogFile = getEnv("DEALSIGHT_LOG_FILE", cfg.LogFile)
	cfg.LogLevelRaw = getEnv("DEALSIGHT_LOG_LEVEL", cfg.LogLevelRaw)

	var err error
	if cfg.EmbedDimension, err = getEnvInt("DEALSIGHT_EMBED_DIMENSION", cfg.EmbedDimension); err != nil {
		return err
	}
	if cfg.LLMMaxTokens, err = getEnvInt("DEALSIGHT_LLM_MAX_TOKENS", cfg.LLMMaxTokens); err != nil {
		return err
	}
	if cfg.LLMTemperature, err = getEnvFloat("DEALSIGHT_LLM_TEMPERATURE", cfg.LLMTemperature); err != nil {
		return err
	}
	if cfg.LLMTopP, err = getEnvFloat("DEALSIGHT_LLM_TOP_P", cfg.LLMTopP); err != nil {
		return err
	}
	if cfg.TopK, err = getEnvInt("DEALSIGHT_TOP_K", cfg.TopK); err != nil {
		return err
	}
	if cfg.SearchEf, err = getEnvInt("DEALSIGHT_SEARCH_EF", cfg.SearchEf); err != nil {
		return err
	}
	if cfg.EmbedTimeout, err = getEnvDuration("DEALSIGHT_EMBED_TIMEOUT", cfg.EmbedTimeout); err != nil {
		return err
	}
	if cfg.LLMTimeout, err = getEnvDuration("DEALSIGHT_LLM_TIMEOUT", cfg.LLMTimeout); err != nil {
		return err
	}
	if cfg.DBTimeout, err = getEnvDuration("DEALSIGHT_DB_TIMEOUT", cfg.DBTimeout); err != nil {
		return err
	}
	return nil
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	switch {
	case c.Collection == "":
		return errors.New("config: collection must not be empty")
	case c.EmbedDimension <= 0:
		return fmt.Errorf("config: embed_dimension must be positive, got %d", c.EmbedDimension)
	case c.TopK <= 0:
		return fmt.Errorf("config: top_k must be positive, got %d", c.TopK)
	case c.SearchEf <= 0:
		return fmt.Errorf("config: search_ef must be positive, got %d", c.SearchEf)
	case c.LLMMaxTokens <= 0:
		return fmt.Errorf("config: llm_max_tokens must be positive, got %d", c.LLMMaxTokens)
	}
	switch c.EmbedProvider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("config: unsupported embed_provider %q", c.EmbedProvider)
	}
	switch c.LLMProvider {
	case ProviderOllama, ProviderOpenAI, ProviderAnthropic, ProviderBedrock:
	default:
		return fmt.Errorf("config: unsupported llm_provider %q", c.LLMProvider)
	}
	return nil
}

// AnyFilter passed as a sector or document type argument clears the
// configured default for that search.
const AnyFilter = "any"

// FilterValue resolves a per-call filter argument against its configured
// default. Empty keeps the default; AnyFilter (any case) means no filter.
func FilterValue(arg, def string) string {
	v := strings.TrimSpace(arg)
	switch {
	case strings.EqualFold(v, AnyFilter):
		return ""
	case v == "":
		return def
	default:
		return v
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
