// Package config provides application configuration with multi-source
// priority.
//
// Sources (highest to lowest):
//  1. Environment variables
//  2. Config file (~/.vesper/config.yaml or ./config.yaml)
//  3. Defaults
//
// Categories:
//   - AI: provider, chat model, embedder model
//   - Knowledge: chunking, embedding batches, retrieval tuning
//   - Server: HTTP API surface (see ServerConfig)
//   - Datadog: APM tracing (see observability.go)
//
// API keys are read by the Genkit provider plugins straight from the
// environment and are never stored here; Validate only checks their
// presence. Errors are sentinels usable with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the selected provider's API key is absent.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the chat model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidOverlap indicates the chunk overlap percentage is out of range.
	ErrInvalidOverlap = errors.New("invalid overlap percent")

	// ErrInvalidBatchSize indicates the embedding batch size is out of range.
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrInvalidDimensions indicates the embedding dimensions are out of range.
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")

	// ErrInvalidThreshold indicates the similarity threshold is out of range.
	ErrInvalidThreshold = errors.New("invalid similarity threshold")

	// ErrInvalidMaxResults indicates the result cap is out of range.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidTokenBudget indicates the token budget is out of range.
	ErrInvalidTokenBudget = errors.New("invalid token budget")

	// ErrInvalidExpansionCount indicates the query expansion count is out of range.
	ErrInvalidExpansionCount = errors.New("invalid expansion count")

	// ErrInvalidServerPort indicates the HTTP port is out of range.
	ErrInvalidServerPort = errors.New("invalid server port")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// DefaultGeminiEmbedderModel is the default Gemini embedder model.
const DefaultGeminiEmbedderModel = "gemini-embedding-001"

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON; update it when adding
// new secrets.
type Config struct {
	// AI provider and model configuration
	Provider      string `mapstructure:"provider" json:"provider"`             // "gemini" (default), "ollama", "openai"
	ModelName     string `mapstructure:"model_name" json:"model_name"`         // e.g. "gemini-2.5-flash", "llama3.3", "gpt-4o"
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"` // e.g. "gemini-embedding-001"

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug|info|warn|error
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Knowledge engine tuning
	Knowledge KnowledgeConfig `mapstructure:"knowledge" json:"knowledge"`

	// HTTP API surface (serve mode only)
	Server ServerConfig `mapstructure:"server" json:"server"`

	// Observability (see observability.go)
	Datadog DatadogConfig `mapstructure:"datadog" json:"datadog"`
}

// KnowledgeConfig tunes the indexing and retrieval engine.
type KnowledgeConfig struct {
	// ChunkSizeTokens is the target chunk size in approximate tokens
	// (1 token ~ 4 characters).
	ChunkSizeTokens int `mapstructure:"chunk_size_tokens" json:"chunk_size_tokens"`

	// OverlapPercent is how much consecutive chunks overlap, 0..99.
	OverlapPercent int `mapstructure:"overlap_percent" json:"overlap_percent"`

	// BatchSize caps how many texts one embedding request carries.
	BatchSize int `mapstructure:"batch_size" json:"batch_size"`

	// EmbeddingDimensions truncates vectors to this length on providers
	// that support it (Gemini embedding models). Zero keeps the model's
	// native dimensionality.
	EmbeddingDimensions int `mapstructure:"embedding_dimensions" json:"embedding_dimensions"`

	// SimilarityThreshold filters out weak matches, 0.0..1.0.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" json:"similarity_threshold"`

	// MaxResults caps true matches per search.
	MaxResults int `mapstructure:"max_results" json:"max_results"`

	// TokenBudget caps the total estimated tokens a search returns.
	TokenBudget int `mapstructure:"token_budget" json:"token_budget"`

	// ExpansionEnabled turns multi-query expansion on.
	ExpansionEnabled bool `mapstructure:"expansion_enabled" json:"expansion_enabled"`

	// ExpansionModel overrides the chat model for query expansion.
	// Empty means use ModelName.
	ExpansionModel string `mapstructure:"expansion_model" json:"expansion_model"`

	// ExpansionCount is the number of alternate phrasings requested, 0..8.
	ExpansionCount int `mapstructure:"expansion_count" json:"expansion_count"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Host        string   `mapstructure:"host" json:"host"`
	Port        int      `mapstructure:"port" json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	// TrustProxy enables X-Forwarded-For/X-Real-IP parsing. Only set behind
	// a reverse proxy you control.
	TrustProxy bool `mapstructure:"trust_proxy" json:"trust_proxy"`
	// RateBurst overrides the per-IP limiter burst. 0 means default.
	RateBurst int `mapstructure:"rate_burst" json:"rate_burst"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".vesper")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults + env carry the day.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("embedder_model", DefaultGeminiEmbedderModel)
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)

	// Knowledge engine defaults
	viper.SetDefault("knowledge.chunk_size_tokens", 256)
	viper.SetDefault("knowledge.overlap_percent", 15)
	viper.SetDefault("knowledge.batch_size", 20)
	viper.SetDefault("knowledge.embedding_dimensions", 0)
	viper.SetDefault("knowledge.similarity_threshold", 0.3)
	viper.SetDefault("knowledge.max_results", 8)
	viper.SetDefault("knowledge.token_budget", 2048)
	viper.SetDefault("knowledge.expansion_enabled", true)
	viper.SetDefault("knowledge.expansion_count", 3)

	// Server defaults
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	viper.SetDefault("server.trust_proxy", false)
	viper.SetDefault("server.rate_burst", 0)

	// Datadog defaults
	viper.SetDefault("datadog.agent_host", "localhost:4318")
	viper.SetDefault("datadog.environment", "dev")
	viper.SetDefault("datadog.service_name", "vesper")
}

// bindEnvVariables binds environment variables explicitly.
//
// Provider API keys (GEMINI_API_KEY, OPENAI_API_KEY) are read directly by the
// Genkit plugins, never through viper; Validate checks their presence for the
// selected provider.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime condition.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "VESPER_PROVIDER")
	mustBind("model_name", "VESPER_MODEL_NAME")
	mustBind("embedder_model", "VESPER_EMBEDDER_MODEL")
	mustBind("ollama_host", "VESPER_OLLAMA_HOST")
	mustBind("log_level", "VESPER_LOG_LEVEL")

	mustBind("server.cors_origins", "VESPER_CORS_ORIGINS")
	mustBind("server.trust_proxy", "VESPER_TRUST_PROXY")

	mustBind("datadog.api_key", "DD_API_KEY")
}

// maskedValue is the placeholder for masked sensitive data. Full-width blocks
// avoid accidental substring matches against the real secret.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Secrets of eight characters or
// fewer are fully masked; longer ones keep the first and last two characters
// for debug utility. Masking covers accidental logging only; rotate secrets
// if logs leak.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit masking of sensitive
// fields. Currently only Datadog.APIKey qualifies.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.Datadog.APIKey = maskSecret(a.Datadog.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified chat model name for Genkit,
// e.g. "googleai/gemini-2.5-flash", "ollama/llama3.3", "openai/gpt-4o".
func (c *Config) FullModelName() string {
	return c.qualifyModel(c.ModelName)
}

// ExpansionModelName returns the provider-qualified model used for query
// expansion, falling back to the chat model when unset.
func (c *Config) ExpansionModelName() string {
	if c.Knowledge.ExpansionModel != "" {
		return c.qualifyModel(c.Knowledge.ExpansionModel)
	}
	return c.FullModelName()
}

// qualifyModel prefixes name with the Genkit provider namespace. Names that
// already carry a "/" pass through untouched.
func (c *Config) qualifyModel(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + name
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + name
	default:
		return ProviderGoogleAI + "/" + name
	}
}

// String implements Stringer so printing a Config never leaks secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
