package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Bar source kinds
const (
	BarSourceCSV      = "csv"
	BarSourcePostgres = "postgres"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here only
type Config struct {
	Env string // development, staging, production

	// Factor storage
	Factor FactorConfig

	// Bar data
	Bars BarConfig

	// Database (only required for the postgres bar source)
	Database DatabaseConfig

	// Redis (run state)
	Redis RedisConfig

	// Logging
	LogLevel   string
	LogFormat  string
	LogFile    string
	LogMaxSize int // MB
	LogBackups int
	LogMaxAge  int // days

	// Monitoring
	MetricsEnabled  bool
	MetricsTextfile string

	// Scheduler
	Scheduler SchedulerConfig
}

// FactorConfig holds factor dataset locations and run defaults
type FactorConfig struct {
	DataRoot     string // <root>/<factor>/<freq>/
	RunConfig    string // optional YAML run configuration
	LookbackDays int    // business days re-computed before the persisted end
	MergePolicy  string // strict | forward-extend
}

// BarConfig selects where minute bars come from
type BarConfig struct {
	Source   string // csv | postgres
	DataRoot string // CSV root: <root>/<market>/<symbol>.csv
	Table    string // PostgreSQL table
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	Prefix   string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SchedulerConfig holds cron expressions (with seconds) and retry policy
type SchedulerConfig struct {
	NewFactorSchedule  string
	PoolUpdateSchedule string
	MaxRetries         int
	RetryDelay         time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Factor: FactorConfig{
			DataRoot:     getEnv("FACTOR_DATA_ROOT", "factorData"),
			RunConfig:    getEnv("FACTOR_RUN_CONFIG", ""),
			LookbackDays: getEnvAsInt("FACTOR_LOOKBACK_DAYS", 30),
			MergePolicy:  getEnv("FACTOR_MERGE_POLICY", "strict"),
		},

		Bars: BarConfig{
			Source:   getEnv("BAR_SOURCE", BarSourceCSV),
			DataRoot: getEnv("BAR_DATA_ROOT", "data"),
			Table:    getEnv("BAR_TABLE", "bars"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Prefix:   getEnv("REDIS_PREFIX", "factorpool"),
		},

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "json"),
		LogFile:    getEnv("LOG_FILE", ""),
		LogMaxSize: getEnvAsInt("LOG_MAX_SIZE_MB", 100),
		LogBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:  getEnvAsInt("LOG_MAX_AGE_DAYS", 30),

		MetricsEnabled:  getEnvAsBool("METRICS_ENABLED", false),
		MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),

		Scheduler: SchedulerConfig{
			NewFactorSchedule:  getEnv("SCHEDULE_NEW_FACTORS", "0 30 15 * * 1-5"),
			PoolUpdateSchedule: getEnv("SCHEDULE_POOL_UPDATE", "0 0 16 * * 1-5"),
			MaxRetries:         getEnvAsInt("SCHEDULER_MAX_RETRIES", 1),
			RetryDelay:         getEnvAsDuration("SCHEDULER_RETRY_DELAY", "5m"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Factor.DataRoot == "" {
		return fmt.Errorf("FACTOR_DATA_ROOT is required")
	}

	if c.Factor.LookbackDays < 0 {
		return fmt.Errorf("FACTOR_LOOKBACK_DAYS must be >= 0")
	}

	if c.Factor.MergePolicy != "strict" && c.Factor.MergePolicy != "forward-extend" {
		return fmt.Errorf("FACTOR_MERGE_POLICY must be one of: strict, forward-extend")
	}

	switch c.Bars.Source {
	case BarSourceCSV:
	case BarSourcePostgres:
		// Database URL is only required when bars come from PostgreSQL
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when BAR_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("BAR_SOURCE must be one of: csv, postgres")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
