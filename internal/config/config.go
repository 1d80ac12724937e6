package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ShutdownTimeout time.Duration

	// WhatsApp Cloud API
	VerifyToken     string
	WhatsAppToken   string
	WhatsAppPhoneID string
	WhatsAppBaseURL string

	// Department catalog override (JSON array; defaults used when empty)
	DepartmentsJSON string

	// Conversation engine
	SessionIdleTimeout time.Duration
	DedupeWindow       time.Duration

	// Reservation transaction
	ReserveMaxAttempts int

	// Webhook rate limiting (requests per minute per IP)
	WebhookRateLimit int
}

// Load reads configuration from environment variables. A .env file is
// honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		VerifyToken:     getEnv("VERIFY_TOKEN", ""),
		WhatsAppToken:   getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppPhoneID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppBaseURL: getEnv("WHATSAPP_BASE_URL", ""),

		DepartmentsJSON: getEnv("DEPARTMENTS_JSON", ""),

		SessionIdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		DedupeWindow:       getEnvAsDuration("WEBHOOK_DEDUPE_WINDOW", 24*time.Hour),

		ReserveMaxAttempts: getEnvAsInt("RESERVE_MAX_ATTEMPTS", 3),

		WebhookRateLimit: getEnvAsInt("WEBHOOK_RATE_LIMIT", 300),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
