package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Oracle   OracleConfig
	Upkeep   UpkeepConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

// OracleConfig selects the price feed. Source is "static" for the built-in
// development rates or "http" for a rate feed service.
type OracleConfig struct {
	Source     string
	FeedURL    string
	MaxRateAge time.Duration
}

// UpkeepConfig drives the in-process payment sweep. OperatorFee is a flat
// amount in settlement smallest units credited to the trigger caller.
type UpkeepConfig struct {
	Enabled           bool
	Interval          time.Duration
	OperatorAccountID string
	OperatorFee       string
}

// DefaultOperatorFee is the flat trigger fee: 0.005 units at 18 decimals.
const DefaultOperatorFee = "5000000000000000"

func Load() (*Config, error) {
	// Missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "paycrow"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Oracle configuration
	maxRateAge, err := time.ParseDuration(getEnv("ORACLE_MAX_RATE_AGE", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORACLE_MAX_RATE_AGE: %w", err)
	}

	config.Oracle = OracleConfig{
		Source:     getEnv("ORACLE_SOURCE", "static"),
		FeedURL:    getEnv("ORACLE_FEED_URL", ""),
		MaxRateAge: maxRateAge,
	}

	// Upkeep configuration
	upkeepInterval, err := time.ParseDuration(getEnv("UPKEEP_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPKEEP_INTERVAL: %w", err)
	}

	config.Upkeep = UpkeepConfig{
		Enabled:           getEnv("UPKEEP_ENABLED", "true") == "true",
		Interval:          upkeepInterval,
		OperatorAccountID: getEnv("OPERATOR_ACCOUNT_ID", "00000000-0000-0000-0000-000000000001"),
		OperatorFee:       getEnv("OPERATOR_FEE", DefaultOperatorFee),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	switch c.Oracle.Source {
	case "static":
	case "http":
		if c.Oracle.FeedURL == "" {
			return fmt.Errorf("ORACLE_FEED_URL is required when ORACLE_SOURCE is http")
		}
	default:
		return fmt.Errorf("unsupported ORACLE_SOURCE: %s", c.Oracle.Source)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
