package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

const devJWTSecret = "agora-dev-secret"

// Config holds the application configuration.
type Config struct {
	Env           string
	ServerPort    int
	StoreDriver   string
	DatabasePath  string
	MongoURI      string
	MongoDatabase string
	JWTSecret     string
	TokenTTL      time.Duration
	CORSOrigins   []string
	LogLevel      string
	AuditSchedule string // Empty disables the edge auditor
	LoginRate     float64
	TrustProxy    bool // Honor X-Forwarded-For and X-Real-IP
}

// Production reports whether the service runs with production settings.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load loads configuration from an optional .env file and environment
// variables, falling back to defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	loginRate, err := strconv.ParseFloat(getEnv("LOGIN_RATE", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_RATE: %w", err)
	}

	trustProxy, err := strconv.ParseBool(getEnv("TRUST_PROXY", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRUST_PROXY: %w", err)
	}

	cfg := &Config{
		Env:           getEnv("APP_ENV", "development"),
		ServerPort:    port,
		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
		DatabasePath:  getEnv("DATABASE_PATH", "./agora.db"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "agora"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		TokenTTL:      ttl,
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		AuditSchedule: getEnv("AUDIT_SCHEDULE", "@every 1h"),
		LoginRate:     loginRate,
		TrustProxy:    trustProxy,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.StoreDriver {
	case DriverSQLite, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q (use sqlite, mongo or memory)", cfg.StoreDriver)
	}

	if cfg.JWTSecret == "" {
		if cfg.Production() {
			return errors.New("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = devJWTSecret
	}

	if cfg.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if cfg.LoginRate <= 0 {
		return errors.New("LOGIN_RATE must be positive")
	}
	return nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
