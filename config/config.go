package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Kafka configuration (order event stream, optional)
	KafkaBrokers []string
	KafkaTopic   string

	// Inventory configuration
	ReservationTTL time.Duration
	SweepInterval  time.Duration
	SweepBatchSize int

	// Payment configuration
	PaymentSessionTTL time.Duration

	// Availability cache
	AvailabilityCacheTTL time.Duration

	// Rate limiting (reserve endpoint)
	ReserveRateLimit  int
	ReserveRateWindow time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	// Optional .env for local development; real deployments use the
	// environment directly.
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		KafkaBrokers: getEnvAsSlice("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "eventhub.orders"),

		// Policy values, not constants: the hold TTL and sweep cadence
		// are deployment decisions.
		ReservationTTL: getEnvAsDuration("RESERVATION_TTL", "15m"),
		SweepInterval:  getEnvAsDuration("SWEEP_INTERVAL", "1m"),
		SweepBatchSize: getEnvAsInt("SWEEP_BATCH_SIZE", 200),

		PaymentSessionTTL: getEnvAsDuration("PAYMENT_SESSION_TTL", "10m"),

		AvailabilityCacheTTL: getEnvAsDuration("AVAILABILITY_CACHE_TTL", "3s"),

		ReserveRateLimit:  getEnvAsInt("RESERVE_RATE_LIMIT", 30),
		ReserveRateWindow: getEnvAsDuration("RESERVE_RATE_WINDOW", "1m"),

		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsSlice(key string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return nil
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
