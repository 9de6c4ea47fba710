package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment variable names for provider credentials
const (
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
)

// Config holds the application configuration.
// Provider credentials are deliberately not snapshotted here; see Credential.
type Config struct {
	// Environment
	Environment string
	Port        string

	// Generation
	LLMProvider       string        // "openai" or "gemini"; empty infers from the model
	LLMModel          string        // e.g. gpt-4
	LLMTemperature    float64       // sampling temperature sent with every call
	LLMMaxTokens      int64         // completion token cap
	GenerationTimeout time.Duration // hard deadline for one model invocation

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse
	CloudWatchEnabled bool   // Push generation metrics to CloudWatch
	LogLevel          string
	LogFormat         string

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-User-* headers set by an upstream gateway
	AuthMode string

	// AllowedOrigins for CORS; "*" allows any origin
	AllowedOrigins []string

	v *viper.Viper
}

// Load reads configuration from the environment. Call godotenv.Load first if a
// .env file should be honored.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Environment:       v.GetString("ENVIRONMENT"),
		Port:              v.GetString("PORT"),
		LLMProvider:       strings.ToLower(v.GetString("LLM_PROVIDER")),
		LLMModel:          v.GetString("LLM_MODEL"),
		LLMTemperature:    v.GetFloat64("LLM_TEMPERATURE"),
		LLMMaxTokens:      v.GetInt64("LLM_MAX_TOKENS"),
		GenerationTimeout: v.GetDuration("GENERATION_TIMEOUT"),
		SentryDSN:         v.GetString("SENTRY_DSN"),
		LangfusePublicKey: v.GetString("LANGFUSE_PUBLIC_KEY"),
		LangfuseSecretKey: v.GetString("LANGFUSE_SECRET_KEY"),
		LangfuseHost:      v.GetString("LANGFUSE_HOST"),
		LangfuseEnabled:   v.GetBool("LANGFUSE_ENABLED"),
		CloudWatchEnabled: v.GetBool("CLOUDWATCH_ENABLED"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
		AuthMode:          v.GetString("AUTH_MODE"),
		AllowedOrigins:    splitList(v.GetString("ALLOWED_ORIGINS")),
		v:                 v,
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("LLM_MODEL", "gpt-4")
	v.SetDefault("LLM_TEMPERATURE", 0.7)
	v.SetDefault("LLM_MAX_TOKENS", 4000)
	v.SetDefault("GENERATION_TIMEOUT", "60s")
	v.SetDefault("LANGFUSE_HOST", "https://cloud.langfuse.com")
	v.SetDefault("LANGFUSE_ENABLED", false)
	v.SetDefault("CLOUDWATCH_ENABLED", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("AUTH_MODE", "none") // Default to no auth for self-hosted
	v.SetDefault("ALLOWED_ORIGINS", "*")
}

func (c *Config) validate() error {
	switch c.LLMProvider {
	case "", "openai", "gemini":
	default:
		return fmt.Errorf("LLM_PROVIDER must be openai or gemini, got %q", c.LLMProvider)
	}
	if c.LLMModel == "" {
		return fmt.Errorf("LLM_MODEL must not be empty")
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be positive, got %s", c.GenerationTimeout)
	}
	if c.LLMMaxTokens < 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must not be negative")
	}
	switch c.AuthMode {
	case "none", "gateway":
	default:
		return fmt.Errorf("AUTH_MODE must be none or gateway, got %q", c.AuthMode)
	}
	return nil
}

// Credential returns the API key for the named provider. It is read from the
// environment on every call so a key set or rotated after startup is honored.
func (c *Config) Credential(provider string) string {
	key := EnvOpenAIAPIKey
	if strings.EqualFold(provider, "gemini") {
		key = EnvGeminiAPIKey
	}
	if c.v == nil {
		return ""
	}
	return strings.TrimSpace(c.v.GetString(key))
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsGatewayMode returns true if running behind an authenticating gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == "gateway"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
