package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Kafka
	KafkaBrokers string
	KafkaTopic   string
	KafkaGroupID string

	// API Configuration
	APIPort string
	APIHost string

	// Public base URL of this app, used for the OAuth redirect
	Domain string

	// Shopify
	ShopifyAPIKey       string
	ShopifySharedSecret string
	ShopName            string
	APIVersion          string
	RequestTimeout      time.Duration
	RateLimit           int

	// Report generation
	ReportConcurrency       int
	ReportMaxPages          int
	ReportSkipFailedLookups bool

	// Environment
	Env      string
	LogLevel string
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	return &Config{
		DatabaseURL:             getEnv("DATABASE_URL", "sqlite://shopcsv.db"),
		RedisURL:                getEnv("REDIS_URL", ""),
		KafkaBrokers:            getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:              getEnv("KAFKA_TOPIC", "report-jobs"),
		KafkaGroupID:            getEnv("KAFKA_GROUP_ID", "shopcsv-worker"),
		APIPort:                 getEnv("API_PORT", "8080"),
		APIHost:                 getEnv("API_HOST", "0.0.0.0"),
		Domain:                  getEnv("DOMAIN", "http://localhost:8080"),
		ShopifyAPIKey:           getEnv("SHOPIFY_API_KEY", ""),
		ShopifySharedSecret:     getEnv("SHOPIFY_SHARED_SECRET", ""),
		ShopName:                getEnv("SHOP_NAME", ""),
		APIVersion:              getEnv("API_VERSION", "2024-01"),
		RequestTimeout:          getEnvAsDuration("SHOPIFY_REQUEST_TIMEOUT", 30*time.Second),
		RateLimit:               getEnvAsInt("SHOPIFY_RATE_LIMIT", 2),
		ReportConcurrency:       getEnvAsInt("REPORT_CONCURRENCY", 4),
		ReportMaxPages:          getEnvAsInt("REPORT_MAX_PAGES", 1),
		ReportSkipFailedLookups: getEnvAsBool("REPORT_SKIP_FAILED_LOOKUPS", false),
		Env:                     getEnv("ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
	}, nil
}

// ShopDomain returns the full myshopify domain for a shop name.
// Names that already carry the suffix are returned unchanged.
func ShopDomain(shop string) string {
	if shop == "" {
		return ""
	}
	if strings.HasSuffix(shop, ".myshopify.com") {
		return shop
	}
	return shop + ".myshopify.com"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
