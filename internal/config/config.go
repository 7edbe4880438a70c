package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds the server-level settings. Service credentials stay with the
// adapters that consume them; only routing and runtime knobs live here.
type Config struct {
	// Host the HTTP server binds to. Empty means all interfaces.
	Host string

	// Port the HTTP server listens on.
	Port string

	// BasePath prefixes every route, for deployments behind a shared
	// reverse proxy. Empty means the routes mount at the root.
	BasePath string

	// Environment selects logger and debug behavior.
	Environment string

	// SpeechLanguage is the BCP-47 tag passed to the recognizer.
	SpeechLanguage string

	// MockServices swaps every external adapter for its mock, for keyless
	// local runs.
	MockServices bool
}

// Load reads configuration from the environment, with .env as a fallback
// for local development.
func Load(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	cfg := &Config{
		Host:           os.Getenv("HOST"),
		Port:           getEnv("PORT", "8080"),
		BasePath:       strings.TrimSuffix(os.Getenv("BASE_PATH"), "/"),
		Environment:    getEnv("APP_ENV", "development"),
		SpeechLanguage: getEnv("STT_LANGUAGE", "en-US"),
		MockServices:   os.Getenv("MOCK_SERVICES") == "true",
	}

	if cfg.BasePath != "" && !strings.HasPrefix(cfg.BasePath, "/") {
		return nil, fmt.Errorf("BASE_PATH must start with a slash, got %q", cfg.BasePath)
	}

	return cfg, nil
}

// IsProduction reports whether the server runs with production logging.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
