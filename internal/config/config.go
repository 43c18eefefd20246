package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	DBAutoMigrate       bool
	JWTSecret           string
	JWTExpiry           time.Duration
	FrontendURL         string
	CorsAllowedOrigins  []string
	RedisURL            string
	RabbitMQURL         string
	OTPExpiry           time.Duration
	OTPDemoMode         bool
	OTPRateLimit        int64
	OTPRateWindow       time.Duration
	CustomerSessionTTL  time.Duration
	WSHeartbeatInterval time.Duration
	HousekeepingEvery   time.Duration

	ObjectStoreEndpoint        string
	ObjectStoreRegion          string
	ObjectStoreAccessKeyID     string
	ObjectStoreSecretAccessKey string
	ObjectStoreBucket          string
	ObjectStorePublicBaseURL   string
	ObjectStoreStorageClass    string
}

func Load() Config {
	env := getEnv("APP_ENV", "development")
	cfg := Config{
		Env:                 env,
		HTTPAddr:            getEnv("HTTP_ADDR", ":5000"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DBAutoMigrate:       getEnvBool("DB_AUTO_MIGRATE", false),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTExpiry:           getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:5173"),
		CorsAllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		RedisURL:            getEnv("REDIS_URL", ""),
		RabbitMQURL:         getEnv("RABBITMQ_URL", ""),
		OTPExpiry:           getEnvDuration("OTP_EXPIRY", 5*time.Minute),
		OTPDemoMode:         getEnvBool("OTP_DEMO_MODE", env == "development"),
		OTPRateLimit:        getEnvInt64("OTP_RATE_LIMIT", 5),
		OTPRateWindow:       getEnvDuration("OTP_RATE_WINDOW", 10*time.Minute),
		CustomerSessionTTL:  getEnvDuration("CUSTOMER_SESSION_TTL", 2*time.Hour),
		WSHeartbeatInterval: getEnvDuration("WS_HEARTBEAT_INTERVAL", 30*time.Second),
		HousekeepingEvery:   getEnvDuration("HOUSEKEEPING_INTERVAL", time.Hour),

		ObjectStoreEndpoint:        getEnv("OBJECT_STORE_ENDPOINT", ""),
		ObjectStoreRegion:          getEnv("OBJECT_STORE_REGION", "auto"),
		ObjectStoreAccessKeyID:     getEnv("OBJECT_STORE_ACCESS_KEY_ID", ""),
		ObjectStoreSecretAccessKey: getEnv("OBJECT_STORE_SECRET_ACCESS_KEY", ""),
		ObjectStoreBucket:          getEnv("OBJECT_STORE_BUCKET", ""),
		ObjectStorePublicBaseURL:   getEnv("OBJECT_STORE_PUBLIC_BASE_URL", ""),
		ObjectStoreStorageClass:    getEnv("OBJECT_STORE_STORAGE_CLASS", "STANDARD"),
	}

	if cfg.OTPExpiry <= 0 {
		cfg.OTPExpiry = 5 * time.Minute
	}
	if cfg.CustomerSessionTTL <= 0 {
		cfg.CustomerSessionTTL = 2 * time.Hour
	}
	if cfg.FrontendURL != "" && len(cfg.CorsAllowedOrigins) == 0 {
		cfg.CorsAllowedOrigins = []string{cfg.FrontendURL}
	}

	return cfg
}

// ObjectStoreEnabled reports whether receipts should be archived.
func (c Config) ObjectStoreEnabled() bool {
	return c.ObjectStoreEndpoint != "" && c.ObjectStoreBucket != "" && c.ObjectStorePublicBaseURL != ""
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
