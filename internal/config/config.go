// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings, agent endpoints only
	JWTSecret string

	// LLM settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultLLM      string
	ModelName       string
	LLMCallsPerHour int

	// Conversation engine settings
	TokenBudget         int
	IdleTimeout         time.Duration
	HourlyMessageLimit  int
	GuardrailRuleFile   string
	JanitorInterval     time.Duration
	ProactiveInterval   time.Duration
	ProactiveConfidence float64

	// Ordering backend
	OrderAPIURL   string
	OrderAPIToken string

	// Notifications
	WebhookURL string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first, without overriding real env vars.
func Load() *Config {
	godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// LLM
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "anthropic"),
		ModelName:       getEnv("LLM_MODEL", ""),
		LLMCallsPerHour: getIntEnv("LLM_CALLS_PER_HOUR", 100),

		// Engine
		TokenBudget:         getIntEnv("CONTEXT_TOKEN_BUDGET", 4000),
		IdleTimeout:         getDurationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		HourlyMessageLimit:  getIntEnv("HOURLY_MESSAGE_LIMIT", 30),
		GuardrailRuleFile:   getEnv("GUARDRAIL_RULE_FILE", ""),
		JanitorInterval:     getDurationEnv("SESSION_JANITOR_INTERVAL", time.Minute),
		ProactiveInterval:   getDurationEnv("PROACTIVE_MIN_INTERVAL", 2*time.Minute),
		ProactiveConfidence: getFloatEnv("PROACTIVE_CONFIDENCE_FLOOR", 0.6),

		// Ordering backend
		OrderAPIURL:   getEnv("ORDER_API_URL", "http://localhost:9090"),
		OrderAPIToken: getEnv("ORDER_API_TOKEN", ""),

		// Notifications
		WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
