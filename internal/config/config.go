package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runner configuration.
type Config struct {
	// Profile storage
	ProfilesDir string

	// Browser behavior
	Headless   bool
	WindowSize string

	// Timing knobs for page interaction
	PageSettleMS     int
	ClickSettleMS    int
	ResolveTimeoutMS int
	ConfirmTimeoutMS int

	// Session lifecycle
	ShutdownTimeoutMS int
	EventBufferSize   int

	// Control API
	BindAddr string

	// Logging
	LogLevel string
	LogFile  string

	// Optional completion notification endpoint (empty disables it)
	NotifyEndpoint string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		ProfilesDir:       getEnvOrDefault("RUNNER_PROFILES_DIR", "./profiles"),
		Headless:          getEnvBoolOrDefault("RUNNER_HEADLESS", false),
		WindowSize:        getEnvOrDefault("RUNNER_WINDOW_SIZE", "1920,1080"),
		PageSettleMS:      getEnvIntOrDefault("RUNNER_PAGE_SETTLE_MS", 4000),
		ClickSettleMS:     getEnvIntOrDefault("RUNNER_CLICK_SETTLE_MS", 500),
		ResolveTimeoutMS:  getEnvIntOrDefault("RUNNER_RESOLVE_TIMEOUT_MS", 10000),
		ConfirmTimeoutMS:  getEnvIntOrDefault("RUNNER_CONFIRM_TIMEOUT_MS", 3000),
		ShutdownTimeoutMS: getEnvIntOrDefault("RUNNER_SHUTDOWN_TIMEOUT_MS", 5000),
		EventBufferSize:   getEnvIntOrDefault("RUNNER_EVENT_BUFFER", 1024),
		BindAddr:          getEnvOrDefault("RUNNER_BIND_ADDR", "127.0.0.1:8177"),
		LogLevel:          getEnvOrDefault("RUNNER_LOG_LEVEL", "info"),
		LogFile:           getEnvOrDefault("RUNNER_LOG_FILE", "logs/runner.log"),
		NotifyEndpoint:    getEnvOrDefault("RUNNER_NOTIFY_ENDPOINT", ""),
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
