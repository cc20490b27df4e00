package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Logger    LoggerConfig
	Token     TokenConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig toggles the latest-credential cache in front of the store.
type CacheConfig struct {
	Enabled    bool
	TTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// TokenConfig holds the signer credentials and expiry policy.
type TokenConfig struct {
	AppID             string
	AppCertificate    string
	DefaultTTLSeconds int64
	// MaxTTLSeconds caps caller supplied expiry; zero leaves it unbounded.
	MaxTTLSeconds int64
}

// StoreConfig bounds credential store calls and the async write queue.
type StoreConfig struct {
	ReadTimeoutSeconds  int
	WriteTimeoutSeconds int
	Workers             int
	QueueSize           int
}

// RateLimitConfig throttles issuance endpoints. RPS of zero disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "rtc-token-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Cache: CacheConfig{
			Enabled:    getEnvAsBool("CACHE_ENABLED", false),
			TTLSeconds: getEnvAsInt("CACHE_TTL_SECONDS", 300),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Token: TokenConfig{
			AppID:             os.Getenv("AGORA_APP_ID"),
			AppCertificate:    os.Getenv("AGORA_APP_CERTIFICATE"),
			DefaultTTLSeconds: int64(getEnvAsInt("TOKEN_DEFAULT_TTL_SECONDS", 3600)),
			MaxTTLSeconds:     int64(getEnvAsInt("TOKEN_MAX_TTL_SECONDS", 0)),
		},
		Store: StoreConfig{
			ReadTimeoutSeconds:  getEnvAsInt("STORE_READ_TIMEOUT_SECONDS", 3),
			WriteTimeoutSeconds: getEnvAsInt("STORE_WRITE_TIMEOUT_SECONDS", 5),
			Workers:             getEnvAsInt("PERSIST_WORKERS", 4),
			QueueSize:           getEnvAsInt("PERSIST_QUEUE_SIZE", 256),
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
	}

	if err := cfg.Token.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t TokenConfig) validate() error {
	if t.AppID == "" {
		return errors.New("AGORA_APP_ID is required")
	}
	if t.AppCertificate == "" {
		return errors.New("AGORA_APP_CERTIFICATE is required")
	}
	if t.DefaultTTLSeconds <= 0 {
		return fmt.Errorf("TOKEN_DEFAULT_TTL_SECONDS must be positive, got %d", t.DefaultTTLSeconds)
	}
	if t.MaxTTLSeconds < 0 {
		return fmt.Errorf("TOKEN_MAX_TTL_SECONDS must not be negative, got %d", t.MaxTTLSeconds)
	}
	if t.MaxTTLSeconds > 0 && t.DefaultTTLSeconds > t.MaxTTLSeconds {
		return fmt.Errorf("TOKEN_DEFAULT_TTL_SECONDS (%d) exceeds TOKEN_MAX_TTL_SECONDS (%d)", t.DefaultTTLSeconds, t.MaxTTLSeconds)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// ReadTimeout returns the per-call deadline for store reads.
func (s StoreConfig) ReadTimeout() time.Duration {
	return secondsOr(s.ReadTimeoutSeconds, 3*time.Second)
}

// WriteTimeout returns the per-call deadline for store writes.
func (s StoreConfig) WriteTimeout() time.Duration {
	return secondsOr(s.WriteTimeoutSeconds, 5*time.Second)
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
