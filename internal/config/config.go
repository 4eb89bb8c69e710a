package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable through STORE_BACKEND
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config holds all application configurations
// All sensitive values are loaded from .env
type Config struct {
	// Server Configuration
	Environment    string
	ServerPort     string
	LogLevel       string
	RequestTimeout time.Duration
	AllowedOrigins []string
	TrustedProxies []string // IPs or CIDRs allowed to set X-Forwarded-For, empty trusts none

	// Storage
	StoreBackend string
	StoreTimeout time.Duration

	// DB configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Redis configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheEnabled  bool
	CacheTTL      time.Duration

	// Application settings
	BaseURL            string // Base URL for generating short links
	IPSaltSecret       string // Salt mixed into daily visitor hashes
	ClickRetentionDays int    // Days a click event is kept

	// Geolocation
	GeoAPIURL    string        // ip-api compatible endpoint, empty disables HTTP lookups
	GeoTimeout   time.Duration // Upper bound on a single lookup
	GeoIPDBPath  string        // Optional MaxMind database, preferred over the HTTP API
	GeoRateLimit int           // HTTP API lookups per minute, 0 disables the cap
}

// LoadConfig loads configuration from environment variables
// Returns error if required environment variables are missing
func LoadConfig() (*Config, error) {
	cfg := &Config{
		// Server defaults
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     getEnv("SERVER_PORT", "8081"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT_MS", 10*time.Second),
		AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies: getEnvAsList("TRUSTED_PROXIES", nil),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres)),
		StoreTimeout: getEnvAsDuration("STORE_TIMEOUT_MS", 3*time.Second),

		// Database configuration
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "tinylinker"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "tinylinker.db"),

		// Redis configuration
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		CacheEnabled:  getEnvAsBool("CACHE_ENABLED", false),
		CacheTTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 3600)) * time.Second,

		// Application settings
		BaseURL:            strings.TrimRight(getEnv("BASE_URL", "https://tinylinker.ly"), "/"),
		IPSaltSecret:       getEnv("IP_SALT_SECRET", "default-salt"),
		ClickRetentionDays: getEnvAsInt("CLICK_RETENTION_DAYS", 15),

		GeoAPIURL:    getEnv("GEO_API_URL", "https://ip-api.com/json"),
		GeoTimeout:   getEnvAsDuration("GEO_TIMEOUT_MS", 2*time.Second),
		GeoIPDBPath:  getEnv("GEOIP_DB_PATH", ""),
		GeoRateLimit: getEnvAsInt("GEO_RATE_LIMIT_PER_MINUTE", 45),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration is present and valid
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.Environment == "production" && c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD is required in production")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of postgres, sqlite, redis, memory, got %q", c.StoreBackend)
	}

	if c.CacheEnabled && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when CACHE_ENABLED is true")
	}

	if c.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required")
	}

	if c.ClickRetentionDays <= 0 {
		return fmt.Errorf("CLICK_RETENTION_DAYS must be positive, got %d", c.ClickRetentionDays)
	}

	if c.StoreTimeout <= 0 || c.GeoTimeout <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}

	if c.GeoRateLimit < 0 {
		return fmt.Errorf("GEO_RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.GeoRateLimit)
	}

	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy)
			}
		}
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DSN builds the PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// Helper functions for reading environment variables

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer or returns default
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBool reads an environment variable as boolean or returns default
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsDuration reads a millisecond count or returns default
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	ms := getEnvAsInt(key, -1)
	if ms < 0 {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}

// getEnvAsList splits a comma separated variable, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
