// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	Env             string
	DBPath          string
	AllowedOrigins  []string
	MaxMessageLen   int
	KeywordsPath    string
	LLM             LLMConfig
	RateLimit       RateLimitConfig
	ConversationLog ConversationLogConfig
}

// LLMConfig configures the upstream model provider. The default base URL
// targets an OpenAI-compatible gateway; any compatible endpoint works.
type LLMConfig struct {
	Provider           string // "openai" (any OpenAI-compatible API) or "anthropic"
	BaseURL            string
	APIKey             string
	ChatModel          string
	PlanModel          string
	SummaryModel       string
	ChatTemperature    float64
	SummaryTemperature float64
	ChatTimeout        time.Duration
	PlanTimeout        time.Duration
	MaxRetries         int
}

// RateLimitConfig controls the per-user chat rate limiter.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// ConversationLogConfig controls NDJSON conversation audit logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	apiKey := getEnv("LLM_API_KEY", "")
	if apiKey == "" {
		// Legacy name kept for compatibility with existing deployments.
		apiKey = getEnv("OPENROUTER_API_KEY", "")
	}

	chatModel := getEnv("CHAT_MODEL", "google/gemma-3-12b-it:free")

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("APP_ENV", "development"),
		DBPath:         getEnv("DB_PATH", "./data/pulseplan.db"),
		AllowedOrigins: splitAndTrim(getEnv("ALLOWED_ORIGINS", "*")),
		MaxMessageLen:  getEnvInt("MAX_MESSAGE_LENGTH", 4000),
		KeywordsPath:   getEnv("KEYWORDS_CONFIG_PATH", ""),
		LLM: LLMConfig{
			Provider:           getEnv("LLM_PROVIDER", "openai"),
			BaseURL:            getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
			APIKey:             apiKey,
			ChatModel:          chatModel,
			PlanModel:          getEnv("PLAN_MODEL", "google/gemma-3-27b-it:free"),
			SummaryModel:       getEnv("SUMMARY_MODEL", chatModel),
			ChatTemperature:    getEnvFloat("CHAT_TEMPERATURE", 0.7),
			SummaryTemperature: getEnvFloat("SUMMARY_TEMPERATURE", 0.3),
			ChatTimeout:        getEnvDuration("CHAT_TIMEOUT", 120*time.Second),
			PlanTimeout:        getEnvDuration("PLAN_TIMEOUT", 60*time.Second),
			MaxRetries:         getEnvInt("LLM_MAX_RETRIES", 3),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:   getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Dir:       getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.MaxMessageLen <= 0 {
		return fmt.Errorf("MAX_MESSAGE_LENGTH must be > 0")
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("LLM_PROVIDER must be \"openai\" or \"anthropic\", got %q", c.LLM.Provider)
	}
	if c.LLM.ChatTemperature < 0 || c.LLM.ChatTemperature > 2 {
		return fmt.Errorf("CHAT_TEMPERATURE must be within [0, 2]")
	}
	if c.LLM.SummaryTemperature < 0 || c.LLM.SummaryTemperature > 2 {
		return fmt.Errorf("SUMMARY_TEMPERATURE must be within [0, 2]")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must be >= 0")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty when logging is enabled")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
