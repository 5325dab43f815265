package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	StoragePath    string
	StorageBaseURL string

	// Orchestration loop tuning.
	LoopInterval     time.Duration
	DispatchBatch    int
	PollBatch        int
	ProviderSeedFile string

	HTTPReadTimeout       time.Duration
	HTTPReadHeaderTimeout time.Duration
	HTTPWriteTimeout      time.Duration
	HTTPIdleTimeout       time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		Port:                  getEnv("PORT", "8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		StoragePath:           getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:        getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		LoopInterval:          getEnvDuration("LOOP_INTERVAL_SECONDS", 5*time.Second),
		DispatchBatch:         getEnvInt("DISPATCH_BATCH_SIZE", 5),
		PollBatch:             getEnvInt("POLL_BATCH_SIZE", 10),
		ProviderSeedFile:      os.Getenv("PROVIDER_SEED_FILE"),
		HTTPReadTimeout:       getEnvDuration("HTTP_READ_TIMEOUT_SECONDS", 15*time.Second),
		HTTPReadHeaderTimeout: getEnvDuration("HTTP_READ_HEADER_TIMEOUT_SECONDS", 5*time.Second),
		HTTPWriteTimeout:      getEnvDuration("HTTP_WRITE_TIMEOUT_SECONDS", 30*time.Second),
		HTTPIdleTimeout:       getEnvDuration("HTTP_IDLE_TIMEOUT_SECONDS", 60*time.Second),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.DispatchBatch <= 0 {
		cfg.DispatchBatch = 5
	}
	if cfg.PollBatch <= 0 {
		cfg.PollBatch = 10
	}
	if cfg.LoopInterval <= 0 {
		cfg.LoopInterval = 5 * time.Second
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}
