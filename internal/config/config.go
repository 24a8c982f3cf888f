// Package config provides application configuration with multi-source priority.
//
// Sources, highest to lowest:
//  1. Environment variables (runtime override)
//  2. Config file (~/.salesdesk/config.yaml or ./config.yaml)
//  3. Default values
//
// Categories:
//   - LLM: default provider key plus per-provider base URL / model / credentials
//   - KB: corpus path, chunk size, retrieval top-K
//   - Auth: JWT issuer, signing secret, token lifetime
//   - Storage: PostgreSQL connection (see storage.go)
//   - Serve: listen address, CORS origins, proxy trust, rate limiting
//
// Sensitive values (JWT secret, API keys, database password) are masked in
// MarshalJSON and String. Validation uses sentinel errors so callers can
// branch with errors.Is (see validation.go).
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

// Provider keys understood by the LLM registry.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Defaults for the knowledge base pipeline.
const (
	// DefaultChunkSize is the target chunk length in bytes. Sections longer
	// than this are re-split at paragraph boundaries.
	DefaultChunkSize = 700

	// DefaultTopK is the number of chunks placed into a prompt.
	DefaultTopK = 4
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON. When adding a new
// secret field, update MarshalJSON as well.
type Config struct {
	// LLM provider selection
	Provider string `mapstructure:"provider" json:"provider"` // "ollama" (default) or "openai"

	// OpenAI-compatible endpoint
	OpenAIBaseURL string `mapstructure:"openai_base_url" json:"openai_base_url"`
	OpenAIModel   string `mapstructure:"openai_model" json:"openai_model"`
	OpenAIAPIKey  string `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE
	OpenAITimeout int    `mapstructure:"openai_timeout_seconds" json:"openai_timeout_seconds"`

	// Ollama-compatible endpoint
	OllamaBaseURL string `mapstructure:"ollama_base_url" json:"ollama_base_url"`
	OllamaModel   string `mapstructure:"ollama_model" json:"ollama_model"`
	OllamaTimeout int    `mapstructure:"ollama_timeout_seconds" json:"ollama_timeout_seconds"`

	// Knowledge base
	KBPath     string `mapstructure:"kb_path" json:"kb_path"`
	ChunkSize  int    `mapstructure:"kb_chunk_size" json:"kb_chunk_size"`
	TopK       int    `mapstructure:"kb_top_k" json:"kb_top_k"`
	PromptPath string `mapstructure:"system_prompt_path" json:"system_prompt_path"`

	// Auth
	JWTIssuer         string `mapstructure:"jwt_issuer" json:"jwt_issuer"`
	JWTSecret         string `mapstructure:"jwt_secret" json:"jwt_secret"` // SENSITIVE
	JWTExpiresMinutes int    `mapstructure:"jwt_expires_minutes" json:"jwt_expires_minutes"`

	// Storage (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Serve
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > config file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".salesdesk")
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
		// A missing config file is fine, defaults apply.
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

	// DATABASE_URL, when set, overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("provider", ProviderOllama)

	viper.SetDefault("openai_base_url", "https://api.openai.com")
	viper.SetDefault("openai_model", "gpt-4o-mini")
	viper.SetDefault("openai_timeout_seconds", 60)

	viper.SetDefault("ollama_base_url", "http://localhost:11434")
	viper.SetDefault("ollama_model", "llama3.2")
	viper.SetDefault("ollama_timeout_seconds", 60)

	viper.SetDefault("kb_path", "kb/kb.txt")
	viper.SetDefault("kb_chunk_size", DefaultChunkSize)
	viper.SetDefault("kb_top_k", DefaultTopK)
	viper.SetDefault("system_prompt_path", "prompts/system_prompt.txt")

	viper.SetDefault("jwt_issuer", "salesdesk")
	viper.SetDefault("jwt_expires_minutes", 60)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "salesdesk")
	viper.SetDefault("postgres_password", "salesdesk_dev_password")
	viper.SetDefault("postgres_db_name", "salesdesk")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("listen_addr", "127.0.0.1:8080")
	viper.SetDefault("cors_origins", []string{"http://localhost:4200"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 60)

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment overrides explicitly.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a failure here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "SALESDESK_PROVIDER")
	mustBind("openai_base_url", "SALESDESK_OPENAI_BASE_URL")
	mustBind("openai_model", "SALESDESK_OPENAI_MODEL")
	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("ollama_base_url", "SALESDESK_OLLAMA_BASE_URL")
	mustBind("ollama_model", "SALESDESK_OLLAMA_MODEL")
	mustBind("kb_path", "SALESDESK_KB_PATH")
	mustBind("system_prompt_path", "SALESDESK_SYSTEM_PROMPT_PATH")
	mustBind("jwt_secret", "SALESDESK_JWT_SECRET")
	mustBind("listen_addr", "SALESDESK_LISTEN_ADDR")
	mustBind("cors_origins", "SALESDESK_CORS_ORIGINS")
	mustBind("trust_proxy", "SALESDESK_TRUST_PROXY")
	mustBind("rate_burst", "SALESDESK_RATE_BURST")
	mustBind("log_level", "SALESDESK_LOG_LEVEL")
	mustBind("log_json", "SALESDESK_LOG_JSON")
}

// maskedValue is the placeholder for masked sensitive data. Full-width
// blocks avoid accidental substring matches against real secret content.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Secrets of 8 bytes or fewer
// are fully masked; longer ones keep the first and last two characters for
// debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive-field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.OpenAIAPIKey = maskSecret(a.OpenAIAPIKey)
	a.JWTSecret = maskSecret(a.JWTSecret)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to keep secrets out of accidental prints.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
