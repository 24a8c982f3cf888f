package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Sentinel validation errors, checked with errors.Is.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the default provider key is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidBaseURL indicates a provider base URL could not be parsed.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// ErrInvalidChunkSize indicates the KB chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidTopK indicates the retrieval top-K is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrMissingKBPath indicates no corpus path is configured.
	ErrMissingKBPath = errors.New("missing kb path")

	// ErrMissingJWTSecret indicates no JWT signing secret is set.
	ErrMissingJWTSecret = errors.New("missing JWT secret")

	// ErrWeakJWTSecret indicates the JWT signing secret is too short.
	ErrWeakJWTSecret = errors.New("JWT secret too short")

	// ErrInvalidJWTExpiry indicates the token lifetime is out of range.
	ErrInvalidJWTExpiry = errors.New("invalid JWT expiry")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is unknown.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// minJWTSecretLen is the minimum accepted HS256 secret length in bytes.
const minJWTSecretLen = 32

var validSSLModes = map[string]bool{
	"disable": true, "allow": true, "prefer": true,
	"require": true, "verify-ca": true, "verify-full": true,
}

// Validate checks configuration invariants shared by every mode.
// Fails fast: the first violated rule is returned.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)",
			ErrInvalidProvider, c.Provider, ProviderOpenAI, ProviderOllama)
	}

	if c.Provider == ProviderOpenAI && strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY is required when provider is %q",
			ErrMissingAPIKey, ProviderOpenAI)
	}

	for _, base := range []string{c.OpenAIBaseURL, c.OllamaBaseURL} {
		if base == "" {
			continue
		}
		u, err := url.Parse(base)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidBaseURL, base)
		}
	}

	if strings.TrimSpace(c.KBPath) == "" {
		return ErrMissingKBPath
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: %d (must be >= 1)", ErrInvalidChunkSize, c.ChunkSize)
	}
	if c.TopK < 1 {
		return fmt.Errorf("%w: %d (must be >= 1)", ErrInvalidTopK, c.TopK)
	}

	if c.JWTExpiresMinutes < 1 || c.JWTExpiresMinutes > 24*60 {
		return fmt.Errorf("%w: %d minutes (must be 1..1440)", ErrInvalidJWTExpiry, c.JWTExpiresMinutes)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}

// ValidateServe checks the additional invariants of serve mode, where
// tokens are actually issued and verified.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("%w: set SALESDESK_JWT_SECRET", ErrMissingJWTSecret)
	}
	if len(c.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("%w: need at least %d bytes, got %d",
			ErrWeakJWTSecret, minJWTSecretLen, len(c.JWTSecret))
	}
	return nil
}
