package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
	Stats     StatsConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins for cookie auth
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
	MaxOpenConns   int
	MaxIdleConns   int
	AutoMigrate    bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Token strategies accepted by AUTH_TOKEN_STRATEGY.
const (
	TokenStrategyPaseto = "paseto"
	TokenStrategyJWT    = "jwt"
)

const tokenKeySize = 32

type AuthConfig struct {
	TokenStrategy string
	// PASETO symmetric key (must be 32 bytes for v4.local)
	PasetoKey []byte
	// HS256 secret, used when TokenStrategy is "jwt"
	JWTSecret            []byte
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	ResetTokenDuration   time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	FromAddress  string
	FrontendURL  string // Frontend URL for reset links
}

type RateLimitConfig struct {
	TaskCreateLimit  int
	TaskCreateWindow time.Duration
	AuthIPLimit      int
	AuthIPWindow     time.Duration
	EmailCooldown    time.Duration
}

type StatsConfig struct {
	CacheTTL time.Duration
}

// Load builds the configuration from the environment. A .env file in the
// working directory is read first when present; real environment variables
// win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "tasky"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
			AutoMigrate:    getBoolEnv("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenStrategy:        strings.ToLower(getEnv("AUTH_TOKEN_STRATEGY", TokenStrategyPaseto)),
			PasetoKey:            []byte(getEnv("PASETO_KEY", "")),
			JWTSecret:            []byte(getEnv("JWT_SECRET", "")),
			AccessTokenDuration:  getDurationEnv("ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getDurationEnv("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			ResetTokenDuration:   getDurationEnv("RESET_TOKEN_DURATION", time.Hour),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASS", ""),
			FromAddress:  getEnv("SMTP_FROM", "noreply@example.com"),
			FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		RateLimit: RateLimitConfig{
			TaskCreateLimit:  getIntEnv("TASK_CREATE_LIMIT", 5),
			TaskCreateWindow: getDurationEnv("TASK_CREATE_WINDOW", time.Minute),
			AuthIPLimit:      getIntEnv("AUTH_IP_LIMIT", 10),
			AuthIPWindow:     getDurationEnv("AUTH_IP_WINDOW", 15*time.Minute),
			EmailCooldown:    getDurationEnv("EMAIL_COOLDOWN", 2*time.Minute),
		},
		Stats: StatsConfig{
			CacheTTL: getDurationEnv("STATS_CACHE_TTL", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.Auth.TokenStrategy {
	case TokenStrategyPaseto:
		if n := len(c.Auth.PasetoKey); n != tokenKeySize {
			return fmt.Errorf("PASETO_KEY must be exactly %d bytes for v4.local, got %d", tokenKeySize, n)
		}
	case TokenStrategyJWT:
		if n := len(c.Auth.JWTSecret); n < tokenKeySize {
			return fmt.Errorf("JWT_SECRET must be at least %d bytes, got %d", tokenKeySize, n)
		}
	default:
		return fmt.Errorf("unsupported AUTH_TOKEN_STRATEGY %q", c.Auth.TokenStrategy)
	}

	if c.RateLimit.TaskCreateLimit <= 0 {
		return fmt.Errorf("TASK_CREATE_LIMIT must be positive, got %d", c.RateLimit.TaskCreateLimit)
	}
	if c.RateLimit.TaskCreateWindow <= 0 {
		return fmt.Errorf("TASK_CREATE_WINDOW must be positive")
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	parts := []string{
		"host=" + c.Host,
		"port=" + c.Port,
		"user=" + c.User,
		"password=" + c.Password,
		"dbname=" + c.DBName,
		"sslmode=" + c.SSLMode,
	}
	// Neon requires channel_binding=require
	if c.ChannelBinding != "" {
		parts = append(parts, "channel_binding="+c.ChannelBinding)
	}
	return strings.Join(parts, " ")
}

// Address returns the host:port pair go-redis dials
func (c *RedisConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	return envOr(key, defaultValue, func(v string) (string, error) { return v, nil })
}

func getIntEnv(key string, defaultValue int) int {
	return envOr(key, defaultValue, strconv.Atoi)
}

func getBoolEnv(key string, defaultValue bool) bool {
	return envOr(key, defaultValue, strconv.ParseBool)
}

// getDurationEnv accepts a bare number of seconds ("90") or a Go duration ("15m").
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	return envOr(key, defaultValue, parseDuration)
}

// getSliceEnv splits a comma separated list, dropping empty entries.
func getSliceEnv(key string, defaultValue []string) []string {
	return envOr(key, defaultValue, func(v string) ([]string, error) {
		var out []string
		for part := range strings.SplitSeq(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil, errEmptyList
		}
		return out, nil
	})
}

var errEmptyList = errors.New("empty list")

// envOr parses the variable named key, falling back to defaultValue when it
// is unset or malformed.
func envOr[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := parse(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func parseDuration(v string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(v)
}
