package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the Pixel Wanderer server
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Cache     CacheConfig
	Providers ProvidersConfig
	Ledger    LedgerConfig
	Auth      AuthConfig
	Logging   LoggingConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Environment  string
}

// StorageConfig holds tile persistence configuration
type StorageConfig struct {
	// Root is the directory holding one subdirectory per world.
	Root string
}

// CacheConfig holds the in-memory tile byte cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// ProviderConfig holds connection settings for one upstream image-generation
// service. API keys arrive out-of-band via the environment, never through
// request payloads.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ProvidersConfig holds per-provider upstream configuration
type ProvidersConfig struct {
	Default         string
	Dalle           ProviderConfig
	StableDiffusion ProviderConfig
}

// LedgerConfig holds the generation audit ledger configuration
type LedgerConfig struct {
	Path    string
	Enabled bool
}

// AuthConfig holds operator authentication configuration
type AuthConfig struct {
	JWTSecret         string
	JWTExpiration     time.Duration
	AdminPasswordHash string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables and .env file
// It returns a Config struct with all settings populated
// The .env file is loaded from the current working directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// godotenv.Load() looks for .env in the current working directory
	if err := godotenv.Load(); err != nil {
		// Environment variables can still be set directly
		log.Printf("Warning: .env file not found (this is OK if using environment variables): %v", err)
	}

	config := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "4000"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			Environment:  getEnv("ENVIRONMENT", "development"),
		},
		Storage: StorageConfig{
			Root: getEnv("STORAGE_ROOT", "generated_backgrounds"),
		},
		Cache: CacheConfig{
			TTL: getDurationEnv("CACHE_TTL", time.Hour),
		},
		Providers: ProvidersConfig{
			Default: getEnv("DEFAULT_AI_SERVICE", "dalle"),
			Dalle: ProviderConfig{
				BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
				APIKey:  getEnv("OPENAI_API_KEY", ""),
				Timeout: getDurationEnv("OPENAI_TIMEOUT", 60*time.Second),
			},
			StableDiffusion: ProviderConfig{
				BaseURL: getEnv("STABLE_DIFFUSION_BASE_URL", "https://api.stable-diffusion.com"),
				APIKey:  getEnv("STABLE_DIFFUSION_API_KEY", ""),
				Timeout: getDurationEnv("STABLE_DIFFUSION_TIMEOUT", 60*time.Second),
			},
		},
		Ledger: LedgerConfig{
			Path:    getEnv("LEDGER_PATH", "generation_ledger.db"),
			Enabled: getBoolEnv("LEDGER_ENABLED", true),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			JWTExpiration:     getDurationEnv("JWT_EXPIRATION", 15*time.Minute),
			AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.Storage.Root == "" {
		return fmt.Errorf("STORAGE_ROOT is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Providers.Default {
	case "dalle", "stable-diffusion":
	default:
		return fmt.Errorf("DEFAULT_AI_SERVICE must be one of: dalle, stable-diffusion")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions for environment variable access

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid boolean value for %s: %s, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return boolValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration value for %s: %s, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return duration
}
