// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application configuration
type Config struct {
	DataDir         string `validate:"required"` // Dataset directory (always absolute)
	CacheDBPath     string // Persistent cache database; defaults to <DataDir>/cache.db
	PersistCache    bool
	LogLevel        string `validate:"oneof=debug info warn warning error disabled off"`
	Port            int    `validate:"min=1,max=65535"`
	DevMode         bool
	ScenariosFile   string // Optional YAML stress scenarios
	SyncSchedule    string `validate:"required,cronspec"`
	SMAWindow       int    `validate:"min=1,max=250"`
	ShutdownTimeout time.Duration
	ObjectStore     ObjectStoreConfig
}

// ObjectStoreConfig points the sync job at an S3-compatible bucket.
// Sync from the bucket is disabled when Bucket is empty.
type ObjectStoreConfig struct {
	Bucket          string
	Prefix          string
	Endpoint        string `validate:"omitempty,url"`
	Region          string `validate:"required_with=Bucket"`
	AccessKeyID     string `validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `validate:"required_with=AccessKeyID"`
}

// Enabled reports whether a bucket is configured
func (o ObjectStoreConfig) Enabled() bool {
	return o.Bucket != ""
}

// DefaultCacheDBPath is the cache database location used when
// RISKTERM_CACHE_DB is not set
func DefaultCacheDBPath(dataDir string) string {
	return filepath.Join(dataDir, "cache.db")
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("RISKTERM_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cacheDB := getEnv("RISKTERM_CACHE_DB", "")
	if cacheDB == "" {
		cacheDB = DefaultCacheDBPath(absDataDir)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		CacheDBPath:     cacheDB,
		PersistCache:    getEnvAsBool("RISKTERM_PERSIST_CACHE", true),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Port:            getEnvAsInt("GO_PORT", 8080),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		ScenariosFile:   getEnv("RISKTERM_SCENARIOS_FILE", ""),
		SyncSchedule:    getEnv("RISKTERM_SYNC_SCHEDULE", "@every 15m"),
		SMAWindow:       getEnvAsInt("RISKTERM_SMA_WINDOW", 20),
		ShutdownTimeout: getEnvAsDuration("RISKTERM_SHUTDOWN_TIMEOUT", 30*time.Second),
		ObjectStore: ObjectStoreConfig{
			Bucket:          getEnv("RISKTERM_S3_BUCKET", ""),
			Prefix:          getEnv("RISKTERM_S3_PREFIX", ""),
			Endpoint:        getEnv("RISKTERM_S3_ENDPOINT", ""),
			Region:          getEnv("RISKTERM_S3_REGION", ""),
			AccessKeyID:     getEnv("RISKTERM_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("RISKTERM_S3_SECRET_ACCESS_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the configuration
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), describe(fe)))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return "oneof (" + strings.ReplaceAll(fe.Param(), " ", ", ") + ")"
	case "min", "max", "required_with":
		return fe.Tag() + "=" + fe.Param()
	default:
		return fe.Tag()
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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
