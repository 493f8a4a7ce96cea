package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Security
	JWTSecret      string
	AllowedOrigins []string

	// Application
	AppEnv   string
	AppPort  string
	LogLevel string

	// Rate Limiting
	RateLimitPerUser    int
	RateLimitPerIP      int
	RateLimitWindowSecs int

	// Battles
	DefaultXPWager          int64
	MaxXPWager              int64
	DefaultMaxPlayers       int
	MaxPlayersLimit         int
	DefaultTimeLimitSeconds int
	WaitingMatchTTLMinutes  int
	CompletedRetentionMins  int
	SweepIntervalSeconds    int

	// Evaluation
	EvalTimeoutMs int
	EvalMaxSteps  int64

	// Realtime
	WSSendBuffer int
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "arena"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "arena_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:      getEnv("JWT_SECRET_KEY", ""),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		AppEnv:   getEnv("APP_ENV", "development"),
		AppPort:  getEnv("APP_PORT", "8000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RateLimitPerUser:    getEnvInt("RATE_LIMIT_PER_USER", 60),
		RateLimitPerIP:      getEnvInt("RATE_LIMIT_PER_IP", 300),
		RateLimitWindowSecs: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),

		DefaultXPWager:          getEnvInt64("DEFAULT_XP_WAGER", 100),
		MaxXPWager:              getEnvInt64("MAX_XP_WAGER", 1000),
		DefaultMaxPlayers:       getEnvInt("DEFAULT_MAX_PLAYERS", 2),
		MaxPlayersLimit:         getEnvInt("MAX_PLAYERS_LIMIT", 8),
		DefaultTimeLimitSeconds: getEnvInt("DEFAULT_TIME_LIMIT_SECONDS", 1800),
		WaitingMatchTTLMinutes:  getEnvInt("WAITING_MATCH_TTL_MINUTES", 60),
		CompletedRetentionMins:  getEnvInt("COMPLETED_RETENTION_MINUTES", 10),
		SweepIntervalSeconds:    getEnvInt("SWEEP_INTERVAL_SECONDS", 15),

		EvalTimeoutMs: getEnvInt("EVAL_TIMEOUT_MS", 2000),
		EvalMaxSteps:  getEnvInt64("EVAL_MAX_STEPS", 5000000),

		WSSendBuffer: getEnvInt("WS_SEND_BUFFER", 256),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters")
	}
	if c.DefaultMaxPlayers < 1 || c.DefaultMaxPlayers > c.MaxPlayersLimit {
		return fmt.Errorf("DEFAULT_MAX_PLAYERS must be between 1 and MAX_PLAYERS_LIMIT (%d)", c.MaxPlayersLimit)
	}
	if c.DefaultXPWager < 0 || c.DefaultXPWager > c.MaxXPWager {
		return fmt.Errorf("DEFAULT_XP_WAGER must be between 0 and MAX_XP_WAGER (%d)", c.MaxXPWager)
	}
	if c.DefaultTimeLimitSeconds <= 0 {
		return fmt.Errorf("DEFAULT_TIME_LIMIT_SECONDS must be positive")
	}
	if c.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be positive")
	}
	if c.EvalTimeoutMs <= 0 || c.EvalMaxSteps <= 0 {
		return fmt.Errorf("EVAL_TIMEOUT_MS and EVAL_MAX_STEPS must be positive")
	}
	if c.WSSendBuffer <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive")
	}
	return nil
}

func (c *Config) ValidateProductionSecurity() error {
	if c.AppEnv != "production" {
		return nil
	}

	if c.DBSSLMode != "require" {
		return fmt.Errorf("DB_SSLMODE must be 'require' in production")
	}
	if c.JWTSecret == "your_jwt_secret_minimum_32_chars_here_change_this" {
		return fmt.Errorf("JWT_SECRET_KEY must be changed from default in production")
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			return fmt.Errorf("ALLOWED_ORIGINS must not contain '*' in production")
		}
	}

	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) GetRateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSecs) * time.Second
}

func (c *Config) GetWaitingMatchTTL() time.Duration {
	return time.Duration(c.WaitingMatchTTLMinutes) * time.Minute
}

func (c *Config) GetCompletedRetention() time.Duration {
	return time.Duration(c.CompletedRetentionMins) * time.Minute
}

func (c *Config) GetSweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) GetEvalTimeout() time.Duration {
	return time.Duration(c.EvalTimeoutMs) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
