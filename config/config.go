package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const VERSION = "1.0"

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Delivery    DeliveryConfig
	Environment string
	LogLevel    string
	Version     string
}

type ServerConfig struct {
	Port int
	Host string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the lib/pq connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	// URL is a redis:// connection string. Empty means the in-process cache
	// is used instead of Redis.
	URL string
}

// DeliveryConfig holds the retry, timeout and retention policy for the
// delivery engine.
type DeliveryConfig struct {
	MaxRetryAttempts     int
	InitialRetryDelay    time.Duration
	RetryBackoffFactor   int
	WebhookTimeout       time.Duration
	LogRetentionHours    int
	SubscriptionCacheTTL time.Duration

	WorkerCount       int
	QueuePollInterval time.Duration
	QueueBatchSize    int
	TaskLease         time.Duration
}

// LoadOptions contains options for loading configuration
type LoadOptions struct {
	EnvFile string // Optional environment file to load (e.g., ".env", ".env.test")
}

// Load loads the configuration with default options
func Load() (*Config, error) {
	// Try to load .env file but don't require it
	return LoadWithOptions(LoadOptions{EnvFile: ".env"})
}

// LoadWithOptions loads the configuration with the specified options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "webhooks")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("VERSION", VERSION)

	// Delivery policy defaults
	v.SetDefault("MAX_RETRY_ATTEMPTS", 5)
	v.SetDefault("INITIAL_RETRY_DELAY", 10)
	v.SetDefault("RETRY_BACKOFF_FACTOR", 2)
	v.SetDefault("WEBHOOK_TIMEOUT", 5)
	v.SetDefault("LOG_RETENTION_HOURS", 72)
	v.SetDefault("SUBSCRIPTION_CACHE_TTL", 3600)

	// Worker pool defaults
	v.SetDefault("WORKER_COUNT", 5)
	v.SetDefault("QUEUE_POLL_INTERVAL", 1)
	v.SetDefault("QUEUE_BATCH_SIZE", 50)
	v.SetDefault("TASK_LEASE_SECONDS", 300)

	// Load environment file if specified
	if opts.EnvFile != "" {
		v.SetConfigName(opts.EnvFile)
		v.SetConfigType("env")

		currentPath, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error getting current directory: %w", err)
		}

		v.AddConfigPath(currentPath)

		if err := v.ReadInConfig(); err != nil {
			// It's okay if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	config := &Config{
		Server: ServerConfig{
			Port: v.GetInt("SERVER_PORT"),
			Host: v.GetString("SERVER_HOST"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Delivery: DeliveryConfig{
			MaxRetryAttempts:     v.GetInt("MAX_RETRY_ATTEMPTS"),
			InitialRetryDelay:    time.Duration(v.GetInt("INITIAL_RETRY_DELAY")) * time.Second,
			RetryBackoffFactor:   v.GetInt("RETRY_BACKOFF_FACTOR"),
			WebhookTimeout:       time.Duration(v.GetInt("WEBHOOK_TIMEOUT")) * time.Second,
			LogRetentionHours:    v.GetInt("LOG_RETENTION_HOURS"),
			SubscriptionCacheTTL: time.Duration(v.GetInt("SUBSCRIPTION_CACHE_TTL")) * time.Second,
			WorkerCount:          v.GetInt("WORKER_COUNT"),
			QueuePollInterval:    time.Duration(v.GetInt("QUEUE_POLL_INTERVAL")) * time.Second,
			QueueBatchSize:       v.GetInt("QUEUE_BATCH_SIZE"),
			TaskLease:            time.Duration(v.GetInt("TASK_LEASE_SECONDS")) * time.Second,
		},
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Version:     v.GetString("VERSION"),
	}

	if config.Delivery.MaxRetryAttempts < 1 {
		return nil, fmt.Errorf("MAX_RETRY_ATTEMPTS must be at least 1")
	}
	if config.Delivery.RetryBackoffFactor < 1 {
		return nil, fmt.Errorf("RETRY_BACKOFF_FACTOR must be at least 1")
	}

	return config, nil
}

// IsDevelopment returns true if the environment is set to development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
