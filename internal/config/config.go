package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries all process-wide settings. It is loaded once in main and
// passed to component constructors; nothing reads the environment after Load.
type Config struct {
	PostgresDSN  string
	RedisAddr    string // empty disables event-ID dedup
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
	MetricsAddr  string

	BatchSize            int
	MaxBatchTime         time.Duration
	FlushRetries         uint64
	RetryInitialInterval time.Duration
	DeadLetterPath       string
	DedupTTL             time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using environment variables", "error", err)
	}

	cfg := &Config{
		PostgresDSN:          getEnv("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=gaming sslmode=disable"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		KafkaBrokers:         strings.Split(getEnv("KAFKA_BROKER", "localhost:9092"), ","),
		KafkaTopic:           getEnv("KAFKA_TOPIC", "gaming.transactions"),
		KafkaGroupID:         getEnv("KAFKA_GROUP_ID", "transaction-consumers"),
		MetricsAddr:          getEnv("METRICS_ADDR", ":9090"),
		BatchSize:            getEnvAsInt("BATCH_SIZE", 100),
		MaxBatchTime:         time.Duration(getEnvAsInt("MAX_BATCH_TIME_SECONDS", 30)) * time.Second,
		FlushRetries:         uint64(getEnvAsInt("FLUSH_RETRIES", 3)),
		RetryInitialInterval: time.Duration(getEnvAsInt("FLUSH_RETRY_INITIAL_MS", 500)) * time.Millisecond,
		DeadLetterPath:       getEnv("DEAD_LETTER_PATH", "deadletter.ndjson"),
		DedupTTL:             time.Duration(getEnvAsInt("DEDUP_TTL_SECONDS", 86400)) * time.Second,
	}

	slog.Info("config loaded",
		"batch_size", cfg.BatchSize,
		"max_batch_time", cfg.MaxBatchTime,
		"flush_retries", cfg.FlushRetries,
		"dedup_enabled", cfg.RedisAddr != "")
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn("invalid integer value, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}
