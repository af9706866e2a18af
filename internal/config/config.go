package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"crptapi/internal/models"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*models.Config, error) {
	// Start with default configuration
	config := models.NewDefaultConfig()

	// Load from file if provided and exists
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	loadFromEnvironment(config)

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		*dst = strings.ToLower(v) == "true"
	}
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *models.Config) {
	// Registry client
	envDuration("CRPT_CLIENT_TIMEOUT", &config.Client.Timeout)
	envString("CRPT_USER_AGENT", &config.Client.UserAgent)

	// Rate limit
	envString("CRPT_TIME_UNIT", &config.RateLimit.TimeUnit)
	envInt("CRPT_REQUEST_LIMIT", &config.RateLimit.RequestLimit)
	envString("CRPT_RATE_LIMIT_STRATEGY", &config.RateLimit.Strategy)
	envDuration("CRPT_ACQUIRE_TIMEOUT", &config.RateLimit.AcquireTimeout)

	// Server configuration
	envInt("CRPT_PORT", &config.Server.Port)
	envString("CRPT_HOST", &config.Server.Host)
	envDuration("CRPT_READ_TIMEOUT", &config.Server.ReadTimeout)
	envDuration("CRPT_WRITE_TIMEOUT", &config.Server.WriteTimeout)
	envDuration("CRPT_IDLE_TIMEOUT", &config.Server.IdleTimeout)

	// Storage configuration
	envString("CRPT_STORAGE_TYPE", &config.Storage.Type)
	envString("CRPT_DATABASE_DSN", &config.Storage.Database.DSN)
	envInt("CRPT_DATABASE_MAX_OPEN_CONNS", &config.Storage.Database.MaxOpenConns)

	envString("CRPT_REDIS_ADDR", &config.Storage.Redis.Addr)
	envString("CRPT_REDIS_PASSWORD", &config.Storage.Redis.Password)
	envInt("CRPT_REDIS_DB", &config.Storage.Redis.DB)
	envString("CRPT_REDIS_KEY_PREFIX", &config.Storage.Redis.KeyPrefix)
	if v := os.Getenv("CRPT_REDIS_MAX_ENTRIES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Storage.Redis.MaxEntries = n
		}
	}

	// Logging configuration
	envString("CRPT_LOG_LEVEL", &config.Logging.Level)
	envString("CRPT_LOG_FORMAT", &config.Logging.Format)
	envString("CRPT_LOG_OUTPUT", &config.Logging.Output)
	envString("CRPT_LOG_FILE_PATH", &config.Logging.FilePath)

	// Metrics configuration
	envBool("CRPT_METRICS_ENABLED", &config.Metrics.Enabled)
	envString("CRPT_METRICS_PATH", &config.Metrics.Path)
	envInt("CRPT_METRICS_PORT", &config.Metrics.Port)

	// Tracing
	envString("CRPT_SERVICE_NAME", &config.Observability.ServiceName)
	envBool("CRPT_TRACING_ENABLED", &config.Observability.Tracing.Enabled)
	envString("CRPT_TRACING_EXPORTER", &config.Observability.Tracing.Exporter)
	envString("CRPT_OTLP_ENDPOINT", &config.Observability.Tracing.OTLPEndpoint)
	if v := os.Getenv("CRPT_TRACING_SAMPLE_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			config.Observability.Tracing.SampleRate = rate
		}
	}
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()

	// Example persistent journal
	config.Storage.Type = models.StorageTypeSQLite
	config.Storage.Database.DSN = "./data/submissions.db"
	config.RateLimit.AcquireTimeout = 10 * time.Second

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
