// Package config provides application configuration with multi-source
// priority.
//
// Sources (highest to lowest):
//  1. Environment variables (runtime override, .env supported)
//  2. Config file (~/.neuralos/config.yaml or ./config.yaml)
//  3. Defaults
//
// The embedder model and its output dimension are pinned here and
// threaded into both the indexing and the query path: note vectors and
// query vectors must come from the same vector space or similarity
// scores are meaningless. Changing the model requires re-embedding
// every note.
//
// Security: secrets are masked in MarshalJSON/String; the config
// directory is created with 0750.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the generation model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbeddingDim indicates the embedding dimension does not
	// match the vector schema.
	ErrInvalidEmbeddingDim = errors.New("invalid embedding dimension")

	// ErrInvalidTopK indicates the default result count is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidContextBudget indicates the context budget is out of range.
	ErrInvalidContextBudget = errors.New("invalid context budget")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidVectorBackend indicates an unknown vector index backend.
	ErrInvalidVectorBackend = errors.New("invalid vector backend")

	// ErrMissingAuthSecret indicates the API token secret is not set.
	ErrMissingAuthSecret = errors.New("missing auth secret")

	// ErrInvalidAuthSecret indicates the API token secret is too short.
	ErrInvalidAuthSecret = errors.New("invalid auth secret")
)

const (
	// DefaultEmbedderModel is the pinned embedding model.
	// gemini-embedding-001 supports truncation to 768 dimensions, which
	// is what the note_embeddings schema declares.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbeddingDim matches vector(768) in the schema.
	DefaultEmbeddingDim = 768

	// DefaultTopK is the result count when the caller does not ask for one.
	DefaultTopK = 5

	// MaxTopK bounds per-request retrieval cost.
	MaxTopK = 20

	// DefaultContextBudget is the maximum total runes of note content
	// injected into a generation prompt.
	DefaultContextBudget = 12000
)

// Vector index backends.
const (
	VectorBackendPostgres = "postgres"
	VectorBackendMemory   = "memory"
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON. When adding a
// secret field, update MarshalJSON.
type Config struct {
	// Generation model configuration
	ModelName   string  `mapstructure:"model_name" json:"model_name"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`

	// Embedding configuration, pinned process-wide (see package doc)
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbeddingDim  int    `mapstructure:"embedding_dim" json:"embedding_dim"`

	// Retrieval configuration
	TopK          int    `mapstructure:"top_k" json:"top_k"`
	ContextBudget int    `mapstructure:"context_budget" json:"context_budget"`
	VectorBackend string `mapstructure:"vector_backend" json:"vector_backend"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server configuration
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	// AuthSecret verifies bearer tokens issued by the external auth
	// provider (HS256). Token issuance is not this service's job.
	AuthSecret string `mapstructure:"auth_secret" json:"auth_secret"` // SENSITIVE

	// Tracing configuration
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
	Environment  string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: environment variables > config file > defaults.
func Load() (*Config, error) {
	// .env is optional; real environments set variables directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Debug("skipping .env", "error", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".neuralos")
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

	// DATABASE_URL wins over individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", 0.7)

	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedding_dim", DefaultEmbeddingDim)

	viper.SetDefault("top_k", DefaultTopK)
	viper.SetDefault("context_budget", DefaultContextBudget)
	viper.SetDefault("vector_backend", VectorBackendPostgres)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "neuralos")
	viper.SetDefault("postgres_password", "neuralos_dev_password")
	viper.SetDefault("postgres_db_name", "neuralos")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("listen_addr", "127.0.0.1:8000")
	viper.SetDefault("cors_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 60)

	viper.SetDefault("service_name", "neuralos")
	viper.SetDefault("environment", "dev")
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via viper; Validate
// only checks its presence.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("auth_secret", "AUTH_SECRET")
	mustBind("listen_addr", "NEURALOS_LISTEN_ADDR")
	mustBind("cors_origins", "NEURALOS_CORS_ORIGINS")
	mustBind("trust_proxy", "NEURALOS_TRUST_PROXY")
	mustBind("rate_burst", "NEURALOS_RATE_BURST")
	mustBind("model_name", "NEURALOS_MODEL_NAME")
	mustBind("embedder_model", "NEURALOS_EMBEDDER_MODEL")
	mustBind("vector_backend", "NEURALOS_VECTOR_BACKEND")
	mustBind("otlp_endpoint", "OTLP_ENDPOINT")
}

// maskedValue uses full-width blocks so masked output can never be a
// substring of the real secret.
const maskedValue = "████████"

// maskSecret masks a secret for logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for
// debugging utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON masks sensitive fields.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.AuthSecret = maskSecret(a.AuthSecret)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit,
// e.g. "googleai/gemini-2.5-flash".
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return "googleai/" + c.ModelName
}

// String implements Stringer so printing a Config never leaks secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
