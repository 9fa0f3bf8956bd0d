package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultAPIURL is used when neither FRAUDSHIELD_API_URL nor VITE_API_URL is set.
	DefaultAPIURL = "http://localhost:5000"
	// DefaultMaxLength is the longest conversation, in characters, accepted for classification.
	DefaultMaxLength = 5000
	// DefaultHTTPAddr keeps the single-user web interface on the local machine.
	DefaultHTTPAddr = "127.0.0.1:8080"
)

// Config holds all application configuration
type Config struct {
	APIURL         string        `env:"FRAUDSHIELD_API_URL" envDefault:"http://localhost:5000"`
	MaxLength      int           `env:"MAX_LENGTH" envDefault:"5000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"0"` // "30s" or plain seconds, 0 leaves it to the transport
	RequestsPerSec int           `env:"REQUESTS_PER_SEC" envDefault:"5"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"sqlite"` // sqlite, postgres, redis, memory
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"fraudshield.db"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	DB DBConfig

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
}

// DBConfig holds PostgreSQL connection parameters
type DBConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	DBName   string `env:"DB_NAME" envDefault:"fraudshield"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.APIURL = strings.TrimRight(getEnvWithDefault("FRAUDSHIELD_API_URL", getEnvWithDefault("VITE_API_URL", DefaultAPIURL)), "/")
	cfg.MaxLength = getEnvIntWithDefault("MAX_LENGTH", DefaultMaxLength)
	cfg.RequestTimeout = getEnvDurationWithDefault("REQUEST_TIMEOUT", 0)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 5)
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.HTTPAddr = getEnvWithDefault("HTTP_ADDR", DefaultHTTPAddr)

	cfg.StorageDriver = strings.ToLower(getEnvWithDefault("STORAGE_DRIVER", "sqlite"))
	cfg.SQLitePath = getEnvWithDefault("SQLITE_PATH", "fraudshield.db")
	cfg.RedisAddr = getEnvWithDefault("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getEnvIntWithDefault("REDIS_DB", 0)

	cfg.DB = DBConfig{
		Host:     getEnvWithDefault("DB_HOST", "localhost"),
		Port:     getEnvWithDefault("DB_PORT", "5432"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   getEnvWithDefault("DB_NAME", "fraudshield"),
		SSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),
	}

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	return &cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDurationWithDefault accepts Go durations ("500ms", "1m") or whole seconds
func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
