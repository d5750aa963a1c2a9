// Package config loads the process configuration from the environment at
// startup, in the same getEnv/getEnvInt/getEnvDuration idiom the rest of the
// ambient stack uses.
package config

import "time"

// Config is the fully assembled process configuration.
type Config struct {
	Listen   ListenConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	RateLimit RateLimitConfig
	Drift    DriftConfig
	Email    EmailConfig
	Payment  PaymentConfig
	ObjectStore ObjectStoreConfig
	FrontendURL string
	LogLevel string
}

type ListenConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	AppSecret      string
	JWTSecret      string
	AccessTokenTTL time.Duration
	RefreshTokenTTL time.Duration
}

type RateLimitConfig struct {
	Window         time.Duration
	GeneralCeiling int
	AuthCeiling    int
}

type DriftConfig struct {
	Tolerance time.Duration
}

type EmailConfig struct {
	ProviderKey string
	From        string
}

type PaymentConfig struct {
	ProviderToken string
}

type ObjectStoreConfig struct {
	Endpoint    string
	Region      string
	Credentials string
	Bucket      string
}

// requiredEnvVars names every environment variable that MUST be set; an
// empty value here is a startup-fatal misconfiguration, per §6.
var requiredEnvVars = []string{
	"DATABASE_URL",
	"REDIS_URL",
	"APP_SECRET",
	"JWT_SECRET",
	"EMAIL_PROVIDER_KEY",
	"EMAIL_FROM",
	"PAYMENT_PROVIDER_TOKEN",
	"OBJECT_STORE_ENDPOINT",
	"OBJECT_STORE_REGION",
	"OBJECT_STORE_CREDENTIALS",
	"OBJECT_STORE_BUCKET",
	"FRONTEND_URL",
}

// MissingRequired returns the names of required variables that are unset or empty.
func MissingRequired() []string {
	var missing []string
	for _, name := range requiredEnvVars {
		if getEnv(name, "") == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Load assembles Config from the process environment. Callers should check
// MissingRequired() first and fail fast if the slice is non-empty.
func Load() *Config {
	return &Config{
		Listen: ListenConfig{
			Host: getEnv("LISTEN_HOST", "0.0.0.0"),
			Port: getEnvInt("LISTEN_PORT", 8080),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Auth: AuthConfig{
			AppSecret:       getEnv("APP_SECRET", ""),
			JWTSecret:       getEnv("JWT_SECRET", ""),
			AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TTL", 24*time.Hour),
			RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TTL", 720*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Window:         getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second),
			GeneralCeiling: getEnvInt("RATE_LIMIT_GENERAL_CEILING", 100),
			AuthCeiling:    getEnvInt("RATE_LIMIT_AUTH_CEILING", 10),
		},
		Drift: DriftConfig{
			Tolerance: getEnvDuration("CLOCK_DRIFT_TOLERANCE", 300*time.Second),
		},
		Email: EmailConfig{
			ProviderKey: getEnv("EMAIL_PROVIDER_KEY", ""),
			From:        getEnv("EMAIL_FROM", ""),
		},
		Payment: PaymentConfig{
			ProviderToken: getEnv("PAYMENT_PROVIDER_TOKEN", ""),
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:    getEnv("OBJECT_STORE_ENDPOINT", ""),
			Region:      getEnv("OBJECT_STORE_REGION", ""),
			Credentials: getEnv("OBJECT_STORE_CREDENTIALS", ""),
			Bucket:      getEnv("OBJECT_STORE_BUCKET", ""),
		},
		FrontendURL: getEnv("FRONTEND_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

func (d DatabaseConfig) DSN() string {
	return d.URL
}

func (r RedisConfig) Address() string {
	return r.URL
}
