package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/conjugo/gateway/internal/budget"
)

type Config struct {
	// Server
	Port string // default: 8080

	// Persistence backend for usage stats and budget overrides:
	// "redis", "postgres" or "memory"
	StoreBackend string
	RedisAddr    string
	PostgresDSN  string

	// Active AI provider
	Provider string // "grok", "openai", "claude" or "gemini"
	Model    string

	// Provider credentials
	XAIAPIKey       string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string

	// Default budget caps, overridable per user at runtime
	Budget budget.Limits

	// External call deadline
	RequestTimeout time.Duration

	// Server-wide per-user request cap (requests per minute), enforced in
	// middleware ahead of the per-session limiter. Requires Redis.
	ServerRateLimitRPM int64

	// Observability
	OTELExporterType     string // "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		StoreBackend:         getEnv("STORE_BACKEND", "redis"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		Provider:             getEnv("ACTIVE_PROVIDER", "grok"),
		Model:                getEnv("ACTIVE_MODEL", "grok-4-fast-non-reasoning"),
		XAIAPIKey:            os.Getenv("XAI_API_KEY"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	var err error
	cfg.Budget.Daily, err = parseDecimal("BUDGET_DAILY_USD", "1.00")
	if err != nil {
		return nil, err
	}
	cfg.Budget.Weekly, err = parseDecimal("BUDGET_WEEKLY_USD", "5.00")
	if err != nil {
		return nil, err
	}
	cfg.Budget.Monthly, err = parseDecimal("BUDGET_MONTHLY_USD", "15.00")
	if err != nil {
		return nil, err
	}

	timeoutStr := getEnv("REQUEST_TIMEOUT", "30s")
	cfg.RequestTimeout, err = time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}

	rpmStr := getEnv("SERVER_RATE_LIMIT_RPM", "30")
	cfg.ServerRateLimitRPM, err = strconv.ParseInt(rpmStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_RATE_LIMIT_RPM: %w", err)
	}

	// Validation
	switch cfg.StoreBackend {
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when STORE_BACKEND=redis")
		}
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required when STORE_BACKEND=postgres")
		}
	case "memory":
		// dev/test only, nothing survives a restart
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

// ActiveProvider returns the identifier of the configured AI provider.
func (c *Config) ActiveProvider() string {
	return c.Provider
}

// ActiveModel returns the model identifier sent to the provider.
func (c *Config) ActiveModel() string {
	return c.Model
}

// Credential returns the API key for the given provider, or "" when none
// is configured.
func (c *Config) Credential(provider string) string {
	switch provider {
	case "grok":
		return c.XAIAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "claude":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	}
	return ""
}

// BudgetLimits returns the configured default spend caps.
func (c *Config) BudgetLimits() budget.Limits {
	return c.Budget
}

func parseDecimal(key, fallback string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
