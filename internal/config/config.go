// Package config provides environment configuration for the leasing assistant.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	CORSAllowedOrigins []string

	// Database settings
	DBDriver     string
	DatabaseURL  string
	SeedDemoData bool

	// LLM settings
	LLMProvider     string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	LLMModel        string
	LLMTemperature  float64
	LLMMaxTokens    int
	LLMTimeout      time.Duration

	// Conversation pipeline
	PromptsFile         string
	RouterFailClosed    bool
	CacheMaxPerIdentity int
	CacheWarmLimit      int
	HistoryWindow       int

	// NATS settings
	NATSEnabled  bool
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// MCP
	MCPEnabled bool

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
		CORSAllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),

		// Database
		DBDriver:     getEnv("DB_DRIVER", "sqlite"),
		DatabaseURL:  getEnv("DATABASE_URL", "leasing.db"),
		SeedDemoData: getBoolEnv("SEED_DEMO_DATA", true),

		// LLM
		LLMProvider:     getEnv("LLM_PROVIDER", "openai"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		LLMModel:        getEnv("LLM_MODEL", ""),
		LLMTemperature:  getFloatEnv("LLM_TEMPERATURE", 0),
		LLMMaxTokens:    getIntEnv("LLM_MAX_TOKENS", 150),
		LLMTimeout:      getDurationEnv("LLM_TIMEOUT", 30*time.Second),

		// Conversation pipeline
		PromptsFile:         getEnv("PROMPTS_FILE", ""),
		RouterFailClosed:    getBoolEnv("ROUTER_FAIL_CLOSED", false),
		CacheMaxPerIdentity: getIntEnv("CACHE_MAX_PER_IDENTITY", 200),
		CacheWarmLimit:      getIntEnv("CACHE_WARM_LIMIT", 50),
		HistoryWindow:       getIntEnv("HISTORY_WINDOW", 30),

		// NATS
		NATSEnabled:  getBoolEnv("NATS_ENABLED", false),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// MCP
		MCPEnabled: getBoolEnv("MCP_ENABLED", true),

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

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
