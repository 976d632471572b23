package config

import (
	"os"
	"strconv"
	"time"

	"qbooking/internal/audit"
	"qbooking/internal/cache"
	"qbooking/internal/database"
	"qbooking/internal/mailer"
	"qbooking/internal/push"
)

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Booking codes embedded in bank transfer memos start with this prefix
	BookingCodePrefix string

	// Notification delivery worker
	Worker WorkerConfig

	Database database.Config
	Redis    cache.Config
	Push     push.Config
	Audit    audit.Config
	SMTP     mailer.Config
}

// WorkerConfig controls the notification delivery loop
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// Load reads the configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		BookingCodePrefix: getEnv("BOOKING_CODE_PREFIX", "BK"),

		Worker: WorkerConfig{
			PollInterval: time.Duration(getEnvInt("WORKER_POLL_INTERVAL_SEC", 30)) * time.Second,
			BatchSize:    getEnvInt("WORKER_BATCH_SIZE", 50),
		},

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "qbooking"),
			Password:           getEnv("DB_PASSWORD", "qbooking123"),
			DBName:             getEnv("DB_NAME", "qbooking"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Redis: cache.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},

		Push: push.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "qbooking"),
			ClientID:  getEnv("NATS_CLIENT_ID", "qbooking-settlement"),
		},

		Audit: audit.Config{
			URL:        getEnv("ELASTICSEARCH_URL", ""),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:      getEnv("ELASTICSEARCH_AUDIT_INDEX", "qbooking-audit"),
			MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		},

		SMTP: mailer.Config{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@qbooking.vn"),
		},
	}
}

// getEnv returns the environment variable value or the default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
