package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// ClientConfig holds configuration for the staff client
type ClientConfig struct {
	BaseURL         string
	Timeout         time.Duration
	SkipNgrokBanner bool
	Scanner         ScannerConfig
	Store           StoreConfig
}

// ScannerConfig holds the scan lockout timings
type ScannerConfig struct {
	FeedbackDelay time.Duration
	ReleaseDelay  time.Duration
}

// StoreConfig selects and configures the durable session store
type StoreConfig struct {
	Backend    string
	FilePath   string
	SQLitePath string
	Redis      RedisConfig
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	TLS       bool
	KeyPrefix string
}

// LoadClient reads the staff client configuration
func LoadClient() (*ClientConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(getEnv("STAFF_API_BASE_URL", "http://localhost:3000")), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("STAFF_API_BASE_URL must not be empty")
	}

	skip, _ := strconv.ParseBool(getEnv("NGROK_SKIP_WARNING", "true"))

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	return &ClientConfig{
		BaseURL:         baseURL,
		Timeout:         getDuration("STAFF_API_TIMEOUT", 10*time.Second),
		SkipNgrokBanner: skip,
		Scanner: ScannerConfig{
			FeedbackDelay: getDuration("SCAN_FEEDBACK_DELAY", 300*time.Millisecond),
			ReleaseDelay:  getDuration("SCAN_RELEASE_DELAY", 2000*time.Millisecond),
		},
		Store: store,
	}, nil
}

func loadStoreConfig() (StoreConfig, error) {
	backend := strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", StoreFile)))
	switch backend {
	case StoreFile, StoreRedis, StoreSQLite, StoreMemory:
	default:
		return StoreConfig{}, fmt.Errorf("invalid SESSION_STORE: '%s' (must be file, redis, sqlite or memory)", backend)
	}

	dir := stateDir()
	return StoreConfig{
		Backend:    backend,
		FilePath:   getEnv("SESSION_FILE", filepath.Join(dir, "session.json")),
		SQLitePath: getEnv("SESSION_SQLITE", filepath.Join(dir, "session.db")),
		Redis:      loadRedisConfig(),
	}, nil
}

// loadRedisConfig follows the REDIS_* convention: REDIS_ADDR or REDIS_HOST/REDIS_PORT,
// REDIS_PASSWORD, REDIS_DB, REDIS_TLS.
func loadRedisConfig() RedisConfig {
	addr := os.Getenv("REDIS_ADDR")
	host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")
	if host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	dbNum, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tlsEnv := os.Getenv("REDIS_TLS")

	return RedisConfig{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        dbNum,
		TLS:       strings.EqualFold(tlsEnv, "true") || tlsEnv == "1",
		KeyPrefix: getEnv("REDIS_KEY_PREFIX", "colony-staff:"),
	}
}

// stateDir is where file-backed client state lives
func stateDir() string {
	if dir := os.Getenv("COLONY_STAFF_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".colony-staff"
	}
	return filepath.Join(home, ".colony-staff")
}
