package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	ServerPort  string
	Environment string
	SiteURL     string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis configuration
	RedisAddress string

	// JWT configuration, shared with the identity provider
	JWTSecret string

	// LLM
	AnthropicAPIKey string
	ExtractModel    string
	DraftModel      string

	// Payments
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceID       string

	// Object storage
	RFPBucket           string
	DocumentBucket      string
	StorageEmulatorHost string

	// Pipeline workers
	WorkerCount    int
	JobMaxAttempts int

	// Tracing
	OtelEnabled  bool
	OtelEndpoint string
}

// Global application configuration
var AppConfig Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Find .env file
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		// Try to find .env in parent directories
		envPath = filepath.Join("..", ".env")
		if _, err := os.Stat(envPath); os.IsNotExist(err) {
			envPath = filepath.Join("..", "..", ".env")
		}
	}

	// Load .env file if it exists
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = generateRandomSecret(32)
		log.Println("Generated random JWT secret")
	}

	AppConfig = Config{
		ServerPort:          getEnv("PORT", "8080"),
		Environment:         getEnv("ENV", "development"),
		SiteURL:             getEnv("SITE_URL", "http://localhost:3000"),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "5432"),
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", "postgres"),
		DBName:              getEnv("DB_NAME", "govbid"),
		RedisAddress:        getEnv("REDIS_ADDRESS", "localhost:6379"),
		JWTSecret:           jwtSecret,
		AnthropicAPIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		ExtractModel:        getEnv("ANTHROPIC_EXTRACT_MODEL", "claude-haiku-4-5-20251001"),
		DraftModel:          getEnv("ANTHROPIC_DRAFT_MODEL", "claude-sonnet-4-6"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePriceID:       os.Getenv("STRIPE_PRICE_ID"),
		RFPBucket:           getEnv("RFP_BUCKET", "rfp-uploads"),
		DocumentBucket:      getEnv("DOCUMENT_BUCKET", "bid-documents"),
		StorageEmulatorHost: os.Getenv("STORAGE_EMULATOR_HOST"),
		WorkerCount:         getEnvInt("WORKER_COUNT", 4),
		JobMaxAttempts:      getEnvInt("JOB_MAX_ATTEMPTS", 3),
		OtelEnabled:         getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value < 1 {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// generateRandomSecret generates a hex secret from length random bytes
func generateRandomSecret(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("failed to generate secret: %v", err)
	}
	return hex.EncodeToString(buf)
}
