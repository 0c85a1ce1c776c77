package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for processx-engine.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	AI       AIConfig       `yaml:"ai"`
	Analysis AnalysisConfig `yaml:"analysis"`

	// Encryption key for stored provider API keys. 32 bytes base64 encoded, or
	// any passphrase (hashed to 32 bytes). Generate with: openssl rand -base64 32
	CredentialsKey string `yaml:"-" env:"CREDENTIALS_KEY"` // Secret - not in YAML
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT signatures are validated.
	// Set to false for local development without an identity provider.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`

	// Audience, when set, must appear in the token's aud claim.
	Audience string `yaml:"audience" env:"AUTH_AUDIENCE" env-default:""`
	// ClockSkew is tolerated on exp/nbf/iat checks.
	ClockSkew time.Duration `yaml:"clock_skew" env:"AUTH_CLOCK_SKEW" env-default:"30s"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"processx"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"processx"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	// StatementTimeout bounds each query server-side; 0 keeps the server default.
	StatementTimeout time.Duration `yaml:"statement_timeout" env:"PGSTATEMENT_TIMEOUT" env-default:"30s"`
}

// AIConfig holds provider fallbacks and call limits.
// The API keys here are used only when an organization has no active
// provider configuration of its own.
type AIConfig struct {
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `yaml:"anthropic_model" env:"ANTHROPIC_MODEL" env-default:"claude-sonnet-4-20250514"`
	OpenAIAPIKey    string `yaml:"-" env:"OPENAI_API_KEY"`
	OpenAIModel     string `yaml:"openai_model" env:"OPENAI_MODEL" env-default:"gpt-4o"`
	OpenAIBaseURL   string `yaml:"openai_base_url" env:"OPENAI_BASE_URL" env-default:""`
	GeminiAPIKey    string `yaml:"-" env:"GEMINI_API_KEY"`
	GeminiModel     string `yaml:"gemini_model" env:"GEMINI_MODEL" env-default:"gemini-1.5-pro"`

	MaxTokens      int           `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"4096"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"AI_REQUEST_TIMEOUT" env-default:"2m"`

	// Circuit breaker per provider.
	BreakerThreshold int           `yaml:"breaker_threshold" env:"AI_BREAKER_THRESHOLD" env-default:"5"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown" env:"AI_BREAKER_COOLDOWN" env-default:"30s"`
}

// AnalysisConfig controls the background analysis executor.
type AnalysisConfig struct {
	// MaxConcurrent bounds how many analyses call providers at once.
	MaxConcurrent     int           `yaml:"max_concurrent" env:"ANALYSIS_MAX_CONCURRENT" env-default:"4"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env:"ANALYSIS_HEARTBEAT_INTERVAL" env-default:"15s"`
	// StaleAfter is how long an IN_PROGRESS analysis may go without a heartbeat
	// before another executor may take it over.
	StaleAfter    time.Duration `yaml:"stale_after" env:"ANALYSIS_STALE_AFTER" env-default:"2m"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"ANALYSIS_SWEEP_INTERVAL" env-default:"1m"`
	MaxAttempts   int           `yaml:"max_attempts" env:"ANALYSIS_MAX_ATTEMPTS" env-default:"3"`

	// Retries of retryable provider errors within a single attempt.
	ProviderRetries      int           `yaml:"provider_retries" env:"ANALYSIS_PROVIDER_RETRIES" env-default:"2"`
	ProviderRetryBackoff time.Duration `yaml:"provider_retry_backoff" env:"ANALYSIS_PROVIDER_RETRY_BACKOFF" env-default:"2s"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// A missing config.yaml is not an error: the environment alone is used.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.EnableVerification && len(c.Auth.JWKSEndpoints) == 0 {
		return fmt.Errorf("auth verification is enabled but no JWKS endpoints are configured")
	}
	if c.Analysis.MaxConcurrent < 1 {
		return fmt.Errorf("analysis.max_concurrent must be at least 1")
	}
	if c.Analysis.MaxAttempts < 1 {
		return fmt.Errorf("analysis.max_attempts must be at least 1")
	}
	if c.Analysis.StaleAfter <= c.Analysis.HeartbeatInterval {
		return fmt.Errorf("analysis.stale_after must be longer than analysis.heartbeat_interval")
	}
	return nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2". Only the first '=' splits a pair.
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	for _, pair := range strings.Split(value, ",") {
		issuer, jwksURL, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		issuer, jwksURL = strings.TrimSpace(issuer), strings.TrimSpace(jwksURL)
		if issuer != "" && jwksURL != "" {
			endpoints[issuer] = jwksURL
		}
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// IsLocal reports whether the server runs in a developer environment.
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == "test"
}
