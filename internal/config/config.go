// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.queryloom/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Generation: chat model, embedder model, retrieval top-k
//   - Knowledge: persisted vector store directory
//   - Postgres: target database connection (see storage.go)
//   - Serve: HTTP listen address, rate limiting
//
// Sensitive data (password, API key) is never logged; String() and
// MarshalJSON mask it. Validation is fail-fast with sentinel errors
// checked via errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingDBName indicates no target database name is configured.
	ErrMissingDBName = errors.New("missing database name")

	// ErrMissingDBUser indicates no database user is configured.
	ErrMissingDBUser = errors.New("missing database user")

	// ErrInvalidPort indicates the database port is out of range.
	ErrInvalidPort = errors.New("invalid database port")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top-k")

	// ErrInvalidModelName indicates an empty chat or embedder model name.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidStoreDir indicates an empty knowledge store directory.
	ErrInvalidStoreDir = errors.New("invalid store directory")

	// ErrInvalidSSLMode indicates an unsupported Postgres SSL mode.
	ErrInvalidSSLMode = errors.New("invalid SSL mode")
)

const (
	// DefaultChatModel is the Gemini model used for SQL generation.
	DefaultChatModel = "gemini-2.5-flash"

	// DefaultEmbedderModel is the Gemini embedding model.
	// gemini-embedding-001 supports truncation to 768 dimensions via
	// OutputDimensionality; see embed.VectorDimension.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultTopK is the per-collection retrieval depth for grounding.
	DefaultTopK = 5
)

// Config stores application configuration.
// Sensitive fields are explicitly masked in MarshalJSON.
type Config struct {
	// Generation configuration
	ModelName     string  `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
	TopK          int     `mapstructure:"top_k" json:"top_k"`

	// Knowledge store configuration
	StoreDir string `mapstructure:"store_dir" json:"store_dir"`

	// Target database configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Serve mode configuration
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	TrustProxy bool   `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateBurst  int    `mapstructure:"rate_burst" json:"rate_burst"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".queryloom")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	viper.SetDefault("model_name", DefaultChatModel)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("temperature", 0.1)
	viper.SetDefault("top_k", DefaultTopK)

	viper.SetDefault("store_dir", filepath.Join(configDir, "knowledge"))

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("listen_addr", "localhost:8080")
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 60)
}

// bindEnvVariables binds environment variables explicitly.
// Target database settings use the conventional POSTGRES_* names;
// application settings use the QUERYLOOM_ prefix.
// GEMINI_API_KEY is read directly via APIKey(), not through viper.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("postgres_host", "POSTGRES_HOST")
	mustBind("postgres_port", "POSTGRES_PORT")
	mustBind("postgres_user", "POSTGRES_USER")
	mustBind("postgres_password", "POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "POSTGRES_DATABASE")

	mustBind("model_name", "QUERYLOOM_MODEL_NAME")
	mustBind("embedder_model", "QUERYLOOM_EMBEDDER_MODEL")
	mustBind("store_dir", "QUERYLOOM_STORE_DIR")
	mustBind("listen_addr", "QUERYLOOM_LISTEN_ADDR")
	mustBind("trust_proxy", "QUERYLOOM_TRUST_PROXY")
}

// APIKey returns the Gemini API key from the environment, or "" when
// unset. Requests may also carry their own credential, so an empty
// key is not a configuration error.
func (c *Config) APIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Short secrets are
// fully masked to prevent substring matching; longer secrets keep the
// first and last two characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
