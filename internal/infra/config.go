package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv            string
	Port              string
	DatabaseURL       string
	JWTSecret         string
	BillingSecret     string
	RedisAddr         string
	RedisChannel      string
	StoragePath       string
	GeoIPDBPath       string
	DefaultLocale     string
	GeminiAPIKey      string
	GeminiModel       string
	GeminiBaseURL     string
	TTSVoice          string
	WorkerConcurrency int
	MaxAttempts       int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		BillingSecret:     os.Getenv("BILLING_WEBHOOK_SECRET"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisChannel:      getEnv("REDIS_CHANNEL", "job-progress"),
		StoragePath:       getEnv("STORAGE_PATH", "./storage"),
		GeoIPDBPath:       os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:     getEnv("DEFAULT_LOCALE", "tr"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		TTSVoice:          getEnv("TTS_VOICE", "tr-TR-Standard-A"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		MaxAttempts:       getEnvInt("JOB_MAX_ATTEMPTS", 3),
		RetryBaseDelay:    time.Second * time.Duration(getEnvInt("JOB_RETRY_BASE_SECONDS", 2)),
		RetryMaxDelay:     time.Second * time.Duration(getEnvInt("JOB_RETRY_MAX_SECONDS", 120)),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
