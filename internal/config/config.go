package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Email      EmailConfig
	Friendship FriendshipConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Secure      bool   // Send HSTS header
	Environment string // "development", "production", "test"
	// Header carrying the authenticated user ID, set by the upstream gateway.
	ActorHeader string
	// Friend request creations allowed per actor per minute; 0 disables the limiter.
	RequestRateLimit int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type EmailConfig struct {
	Provider     string // "resend", "smtp", "console"
	FromAddress  string
	FromName     string
	BaseURL      string // Application base URL for links
	ResendAPIKey string
	// SMTP settings (for Mailpit in local dev)
	SMTPHost string
	SMTPPort int
}

// FriendshipConfig tunes the relationship engine and its collaborators.
type FriendshipConfig struct {
	// PairLock is "none", "local" or "redis". Only needed when the store
	// cannot enforce the unique active-pair index.
	PairLock       string
	PairLockTTL    time.Duration
	CreateAttempts int

	NotifyEnabled bool
	NotifyWorkers int
	NotifyTimeout time.Duration
	// Outbound notification emails per second; 0 removes the cap.
	NotifyRate  float64
	NotifyBurst int

	UserCacheSize int
	UserCacheTTL  time.Duration
}

type LogConfig struct {
	Level string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

var errInvalidPairLock = errors.New("FRIENDSHIP_PAIR_LOCK must be one of none, local, redis")

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:             getEnv("SERVER_HOST", "0.0.0.0"),
			Port:             getEnvInt("SERVER_PORT", 8080),
			Secure:           getEnvBool("SERVER_SECURE", false),
			Environment:      getEnv("APP_ENV", "development"),
			ActorHeader:      getEnv("ACTOR_HEADER", "X-User-ID"),
			RequestRateLimit: getEnvInt("FRIEND_REQUEST_RATE_LIMIT", 30),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "social"),
			Password: getEnv("DB_PASSWORD", "social"),
			DBName:   getEnv("DB_NAME", "socialgraph"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Email: EmailConfig{
			Provider:     getEnv("EMAIL_PROVIDER", "console"),
			FromAddress:  getEnv("EMAIL_FROM_ADDRESS", "noreply@socialgraph.dev"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Social Graph"),
			BaseURL:      getEnv("APP_BASE_URL", "http://localhost:8080"),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			SMTPHost:     getEnv("SMTP_HOST", "localhost"),
			SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		},
		Friendship: FriendshipConfig{
			PairLock:       strings.ToLower(getEnv("FRIENDSHIP_PAIR_LOCK", "none")),
			PairLockTTL:    getEnvDuration("FRIENDSHIP_PAIR_LOCK_TTL", 5*time.Second),
			CreateAttempts: getEnvInt("FRIENDSHIP_CREATE_ATTEMPTS", 3),
			NotifyEnabled:  getEnvBool("FRIENDSHIP_NOTIFY", true),
			NotifyWorkers:  getEnvInt("FRIENDSHIP_NOTIFY_WORKERS", 16),
			NotifyTimeout:  getEnvDuration("FRIENDSHIP_NOTIFY_TIMEOUT", 10*time.Second),
			NotifyRate:     getEnvFloat("FRIENDSHIP_NOTIFY_RATE", 2),
			NotifyBurst:    getEnvInt("FRIENDSHIP_NOTIFY_BURST", 2),
			UserCacheSize:  getEnvInt("USER_CACHE_SIZE", 4096),
			UserCacheTTL:   getEnvDuration("USER_CACHE_TTL", time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	switch cfg.Friendship.PairLock {
	case "none", "local", "redis":
	default:
		return nil, errInvalidPairLock
	}
	if cfg.Friendship.CreateAttempts < 1 {
		cfg.Friendship.CreateAttempts = 1
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
