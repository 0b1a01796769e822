package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds runtime settings read from the environment
type Config struct {
	// API Configuration
	API APIConfig

	// Credentials for non-interactive login
	Credentials CredentialsConfig

	// Logging Configuration
	Logging LoggingConfig
}

// APIConfig holds the API endpoint overrides
type APIConfig struct {
	URL    string // overrides the selected server when set
	Origin string // sent as the Origin header when set
}

// CredentialsConfig holds credentials supplied through the environment (useful for CI/CD)
type CredentialsConfig struct {
	Username string
	Password string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// Logging configuration - a CLI stays quiet unless asked
	logLevel := os.Getenv("HIRELOOP_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "warn"
	}

	logFormat := os.Getenv("HIRELOOP_LOG_FORMAT")
	if logFormat == "" {
		logFormat = "console"
	}

	return &Config{
		API: APIConfig{
			URL:    os.Getenv("HIRELOOP_API_URL"),
			Origin: os.Getenv("HIRELOOP_ORIGIN"),
		},
		Credentials: CredentialsConfig{
			Username: os.Getenv("HIRELOOP_USERNAME"),
			Password: os.Getenv("HIRELOOP_PASSWORD"),
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
	}, nil
}
