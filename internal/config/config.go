package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the loyalty backend
type Config struct {
	AppMode   string
	Port      string
	Storage   string
	RateLimit int
	Database  DatabaseConfig
	JWT       JWTConfig
	Loyalty   LoyaltyConfig
	Broker    BrokerConfig
	Cron      CronConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds staff access token configuration
type JWTConfig struct {
	Secret          string
	AccessTokenMins int
}

// LoyaltyConfig holds the points rules
type LoyaltyConfig struct {
	PointsPerUnit float64
	FirstStaffNo  int
}

// BrokerConfig holds RabbitMQ configuration. An empty URL disables publishing.
type BrokerConfig struct {
	URL   string
	Queue string
}

// CronConfig holds background job schedules
type CronConfig struct {
	TokenPurge   string
	VisitSummary string
}

// Server storage backends
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	loyalty, err := loadLoyaltyConfig()
	if err != nil {
		return nil, err
	}

	storage := strings.ToLower(strings.TrimSpace(getEnv("STORAGE", StorageMySQL)))
	if storage != StorageMySQL && storage != StorageMemory {
		return nil, fmt.Errorf("invalid STORAGE: '%s' (must be '%s' or '%s')", storage, StorageMySQL, StorageMemory)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "100"))
	if err != nil || rateLimit <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: must be a positive integer")
	}

	config := &Config{
		AppMode:   appMode,
		Port:      getEnv("PORT", "3000"),
		Storage:   storage,
		RateLimit: rateLimit,
		Database:  loadDatabaseConfig(appMode),
		JWT:       loadJWTConfig(appMode),
		Loyalty:   loyalty,
		Broker: BrokerConfig{
			URL:   firstEnv("RABBITMQ_URL", "AMQP_URL"),
			Queue: getEnv("VISIT_QUEUE", "loyalty.visit.awarded"),
		},
		Cron: CronConfig{
			TokenPurge:   getEnv("CRON_TOKEN_PURGE", "0 3 * * *"),
			VisitSummary: getEnv("CRON_VISIT_SUMMARY", "55 23 * * *"),
		},
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "colony_loyalty"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := modePrefix(mode)

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "720"))

	return JWTConfig{
		Secret:          getEnv(prefix+"JWT_SECRET", "default_secret"),
		AccessTokenMins: accessMins,
	}
}

func loadLoyaltyConfig() (LoyaltyConfig, error) {
	rate, err := strconv.ParseFloat(getEnv("POINTS_PER_UNIT", "0.1"), 64)
	if err != nil || rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return LoyaltyConfig{}, fmt.Errorf("invalid POINTS_PER_UNIT: must be a non-negative number")
	}
	first, err := strconv.Atoi(getEnv("FIRST_STAFF_NO", "500501"))
	if err != nil || first <= 0 {
		return LoyaltyConfig{}, fmt.Errorf("invalid FIRST_STAFF_NO: must be a positive integer")
	}
	return LoyaltyConfig{PointsPerUnit: rate, FirstStaffNo: first}, nil
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv returns the first non-empty variable among keys
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// getDuration parses a Go duration or a bare number of milliseconds
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("⚠️ Invalid %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://staff.colony.example"
	}
	return origins
}
