package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration, loaded from environment
// variables so the same binary runs unchanged in dev, staging, and
// production.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	StatsD   StatsDConfig
	SMTP     SMTPConfig
	App      AppConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

// RedisConfig holds the optional redirect-target cache settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// StatsDConfig holds the metrics collector settings
type StatsDConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// SMTPConfig holds the alert channel settings
type SMTPConfig struct {
	Enabled    bool
	Host       string
	Port       string
	Username   string
	Password   string
	From       string
	Recipients []string
}

// AppConfig holds filtering and operational settings
type AppConfig struct {
	Environment      string
	LogLevel         string
	MaxClicksPerDay  int           // Global default velocity cap
	DuplicateWindow  time.Duration // Double-click threshold
	HistoryRetention time.Duration // Click history eviction window
	JanitorInterval  time.Duration // How often idle addresses are swept
	BlacklistRefresh time.Duration // Pattern set reload interval
	OverrideCacheTTL time.Duration // Affiliate override cache lifetime, 0 = forever
	BannedReferrers  []string      // Banned-referrer patterns, usually empty
	EnableMetrics    bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "10s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "10s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "120s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "redirectserver"),
			Password:        getEnv("DB_PASSWORD", "dev_password_123"),
			DBName:          getEnv("DB_NAME", "redirectserver"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
			Migrate:         parseBool("DB_MIGRATE", false),
		},
		Redis: RedisConfig{
			Enabled:  parseBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt("REDIS_DB", 0),
			CacheTTL: parseDuration("REDIS_CACHE_TTL", "1h"),
		},
		StatsD: StatsDConfig{
			Enabled: parseBool("STATSD_ENABLED", true),
			Host:    getEnv("STATSD_HOST", "localhost"),
			Port:    parseInt("STATSD_PORT", 8125),
		},
		SMTP: SMTPConfig{
			Enabled:    parseBool("SMTP_ENABLED", false),
			Host:       getEnv("SMTP_HOST", "localhost"),
			Port:       getEnv("SMTP_PORT", "25"),
			Username:   getEnv("SMTP_USERNAME", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			From:       getEnv("SMTP_FROM", "redirect-server@localhost"),
			Recipients: parseList("SMTP_RECIPIENTS", nil),
		},
		App: AppConfig{
			Environment:      getEnv("APP_ENV", "development"),
			LogLevel:         getEnv("LOG_LEVEL", "info"),
			MaxClicksPerDay:  parseInt("MAX_CLICKS_PER_DAY", 3),
			DuplicateWindow:  parseDuration("DUPLICATE_WINDOW", "2s"),
			HistoryRetention: parseDuration("HISTORY_RETENTION", "24h"),
			JanitorInterval:  parseDuration("JANITOR_INTERVAL", "10m"),
			BlacklistRefresh: parseDuration("BLACKLIST_REFRESH", "5m"),
			OverrideCacheTTL: parseDuration("OVERRIDE_CACHE_TTL", "5m"),
			BannedReferrers:  parseList("BANNED_REFERRERS", nil),
			EnableMetrics:    parseBool("ENABLE_METRICS", true),
		},
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address in host:port format.
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions to parse environment variables with defaults

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		// If parsing fails, parse the default value
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

func parseList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}
