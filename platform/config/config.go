// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// StatsConfig provides settings for the dial-queue stats cache.
type StatsConfig interface {
	GetRedisURL() string
	GetStatsCacheTTL() time.Duration
}

// TelephonyConfig provides settings for the outbound telephony provider.
type TelephonyConfig interface {
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
	GetTwilioFromNumber() string
	GetTwilioStatusCallbackURL() string
	IsTelephonyEnabled() bool
}

// DialerConfig provides tuning knobs for the auto-dialer.
type DialerConfig interface {
	GetCallStatusPollDelay() time.Duration
	GetStaleLeadThreshold() time.Duration
	GetDialRatePerMinute() int
}

// StorageConfig provides settings for MinIO S3-compatible document storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketLeadDocuments() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	StatsCacheTTL    time.Duration

	TwilioAccountSID        string
	TwilioAuthToken         string
	TwilioFromNumber        string
	TwilioStatusCallbackURL string
	TelephonyEnabled        bool

	CallStatusPollDelay time.Duration
	StaleLeadThreshold  time.Duration
	DialRatePerMinute   int

	MinIOEndpoint           string
	MinIOAccessKey          string
	MinIOSecretKey          string
	MinIOUseSSL             bool
	MinIOMaxFileSize        int64
	MinioBucketLeadDocuments string
	MinIOEnabled            bool
}

// Load reads configuration from the environment, with .env support for
// local development.
func Load() (*Config, error) {
	// Best effort; production supplies real env vars.
	_ = godotenv.Load()

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTAccessSecret: os.Getenv("JWT_ACCESS_SECRET"),

		CORSAllowAll:   getEnvBool("CORS_ALLOW_ALL", false),
		CORSOrigins:    splitAndTrim(os.Getenv("CORS_ORIGINS")),
		CORSAllowCreds: getEnvBool("CORS_ALLOW_CREDENTIALS", true),

		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure: getEnvBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "dialer"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),
		StatsCacheTTL:    getEnvDuration("DIAL_STATS_CACHE_TTL", 5*time.Second),

		TwilioAccountSID:        os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:         os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:        os.Getenv("TWILIO_FROM_NUMBER"),
		TwilioStatusCallbackURL: os.Getenv("TWILIO_STATUS_CALLBACK_URL"),
		TelephonyEnabled:        getEnvBool("TELEPHONY_ENABLED", false),

		CallStatusPollDelay: getEnvDuration("CALL_STATUS_POLL_DELAY", 10*time.Second),
		StaleLeadThreshold:  getEnvDuration("STALE_LEAD_THRESHOLD", 15*time.Minute),
		DialRatePerMinute:   getEnvInt("DIAL_RATE_PER_MINUTE", 30),

		MinIOEndpoint:            os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:           os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:           os.Getenv("MINIO_SECRET_KEY"),
		MinIOUseSSL:              getEnvBool("MINIO_USE_SSL", false),
		MinIOMaxFileSize:         getEnvInt64("MINIO_MAX_FILE_SIZE", 25<<20),
		MinioBucketLeadDocuments: getEnv("MINIO_BUCKET_LEAD_DOCUMENTS", "lead-documents"),
		MinIOEnabled:             getEnvBool("MINIO_ENABLED", false),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.TelephonyEnabled {
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" {
			return nil, fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required when TELEPHONY_ENABLED=true")
		}
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string       { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool     { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string  { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool   { return c.CORSAllowCreds }

func (c *Config) GetRedisURL() string          { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool    { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string    { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int     { return c.AsynqConcurrency }
func (c *Config) GetStatsCacheTTL() time.Duration { return c.StatsCacheTTL }

func (c *Config) GetTwilioAccountSID() string        { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string         { return c.TwilioAuthToken }
func (c *Config) GetTwilioFromNumber() string        { return c.TwilioFromNumber }
func (c *Config) GetTwilioStatusCallbackURL() string { return c.TwilioStatusCallbackURL }
func (c *Config) IsTelephonyEnabled() bool           { return c.TelephonyEnabled }

func (c *Config) GetCallStatusPollDelay() time.Duration { return c.CallStatusPollDelay }
func (c *Config) GetStaleLeadThreshold() time.Duration  { return c.StaleLeadThreshold }
func (c *Config) GetDialRatePerMinute() int             { return c.DialRatePerMinute }

func (c *Config) GetMinIOEndpoint() string            { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string           { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string           { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64          { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketLeadDocuments() string { return c.MinioBucketLeadDocuments }
func (c *Config) IsMinIOEnabled() bool                { return c.MinIOEnabled }

// =============================================================================
// Env helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitAndTrim(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
