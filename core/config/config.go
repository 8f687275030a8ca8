package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel     OTelConfig
	Advisory AdvisoryConfig
	Field    FieldConfig
	Insight  InsightConfig
	Chat     ChatConfig
	Bus      BusConfig
	Env      string
	LogLevel string
	Port     string
	NodeID   int64
	// AllowedOrigins lists browser origins accepted on /ws. Empty means same-host only.
	AllowedOrigins []string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
	SampleRatio    float64
}

// AdvisoryConfig points at the remote advisory service (field checks, health, insights, chat).
type AdvisoryConfig struct {
	BaseURL string
	Timeout time.Duration
}

type FieldConfig struct {
	Debounce time.Duration
}

type InsightConfig struct {
	TTL         time.Duration
	SettleDelay time.Duration
}

type ChatConfig struct {
	Provider string // "remote", "openai" or "anthropic"
	LLM      LLMConfig
}

type LLMConfig struct {
	APIKey    string
	BaseURL   string // Optional: for custom endpoints
	Model     string
	MaxTokens int
}

type BusConfig struct {
	RedisURL string
	Channel  string
}

const (
	ChatProviderRemote    = "remote"
	ChatProviderOpenAI    = "openai"
	ChatProviderAnthropic = "anthropic"
)

type ServiceType string

const (
	ServiceTypeGateway ServiceType = "gateway"
)

// Load loads configuration from environment variables.
// In development, it loads from the service-specific .env file (.env.gateway)
// and falls back to .env if that file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("ADVISOR_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:            getEnv("ADVISOR_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", ""),
		Port:           getEnv("PORT", "8090"),
		NodeID:         getEnvInt64("NODE_ID", 1),
		AllowedOrigins: getEnvList("WS_ALLOWED_ORIGINS"),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "advisor-gateway"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			SampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		},
		Advisory: AdvisoryConfig{
			BaseURL: getEnv("ADVISORY_BASE_URL", ""),
			Timeout: getEnvDuration("ADVISORY_TIMEOUT", 15*time.Second),
		},
		Field: FieldConfig{
			Debounce: getEnvDuration("FIELD_DEBOUNCE", 400*time.Millisecond),
		},
		Insight: InsightConfig{
			TTL:         getEnvDuration("INSIGHT_TTL", 5*time.Minute),
			SettleDelay: getEnvDuration("INSIGHT_SETTLE_DELAY", 1500*time.Millisecond),
		},
		Chat: ChatConfig{
			Provider: getEnv("CHAT_PROVIDER", ChatProviderRemote),
			LLM: LLMConfig{
				APIKey:    getEnv("CHAT_LLM_API_KEY", ""),
				BaseURL:   getEnv("CHAT_LLM_BASE_URL", ""),
				Model:     getEnv("CHAT_LLM_MODEL", ""),
				MaxTokens: getEnvInt("CHAT_LLM_MAX_TOKENS", 1024),
			},
		},
		Bus: BusConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			Channel:  getEnv("MUTATION_CHANNEL", "advisor:data-changed"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Advisory.BaseURL == "" {
		return fmt.Errorf("ADVISORY_BASE_URL is required")
	}

	switch c.Chat.Provider {
	case ChatProviderRemote:
	case ChatProviderOpenAI, ChatProviderAnthropic:
		if c.Chat.LLM.APIKey == "" {
			return fmt.Errorf("CHAT_LLM_API_KEY is required for chat provider %q", c.Chat.Provider)
		}
	default:
		return fmt.Errorf("unsupported CHAT_PROVIDER: %s", c.Chat.Provider)
	}

	if c.Field.Debounce <= 0 || c.Insight.TTL <= 0 || c.Insight.SettleDelay <= 0 {
		return fmt.Errorf("FIELD_DEBOUNCE, INSIGHT_TTL and INSIGHT_SETTLE_DELAY must be positive durations")
	}

	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c BusConfig) Enabled() bool {
	return c.RedisURL != ""
}

func (c ChatConfig) UsesLLM() bool {
	return c.Provider == ChatProviderOpenAI || c.Provider == ChatProviderAnthropic
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
