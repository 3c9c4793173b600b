package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageConfig selects the object store backend ("minio" or "local").
type StorageConfig struct {
	Type      string
	LocalPath string
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// GrantConfig controls temporary access grants and their countdown.
type GrantConfig struct {
	// PublicBaseURL is the origin embedded in retrieval routes, e.g. https://kawach.example.com
	PublicBaseURL string
	SigningSecret string
	TTL           time.Duration
	TickInterval  time.Duration
	RevokeTimeout time.Duration
	QRSize        int
}

// NATSConfig holds the optional event bus connection. An empty URL disables publishing.
type NATSConfig struct {
	URL string
}

// RateLimitConfig limits the public retrieval routes.
type RateLimitConfig struct {
	RPS   int
	Burst int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost   string
	Port      string
	Timezone  string
	Database  DatabaseConfig
	MinIO     MinIOConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Grant     GrantConfig
	NATS      NATSConfig
	RateLimit RateLimitConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Storage: StorageConfig{
			Type:      strings.ToLower(getEnv("STORAGE_TYPE", "minio")),
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "./data/storage"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
		},
		Grant: GrantConfig{
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			SigningSecret: getEnv("GRANT_SIGNING_SECRET", ""),
			TTL:           getEnvDuration("GRANT_TTL", 40*time.Second),
			TickInterval:  getEnvDuration("GRANT_TICK_INTERVAL", time.Second),
			RevokeTimeout: getEnvDuration("GRANT_REVOKE_TIMEOUT", 10*time.Second),
			QRSize:        getEnvInt("GRANT_QR_SIZE", 256),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", ""),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvInt("RETRIEVE_RATE_LIMIT_RPS", 20),
			Burst: getEnvInt("RETRIEVE_RATE_LIMIT_BURST", 40),
		},
	}
}

// Validate checks the settings the server cannot start without.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Grant.SigningSecret == "" {
		errs = append(errs, errors.New("GRANT_SIGNING_SECRET is required"))
	}
	if c.Grant.TTL <= 0 {
		errs = append(errs, errors.New("GRANT_TTL must be positive"))
	}
	if c.Grant.TickInterval <= 0 {
		errs = append(errs, errors.New("GRANT_TICK_INTERVAL must be positive"))
	}
	if c.Grant.QRSize <= 0 {
		errs = append(errs, errors.New("GRANT_QR_SIZE must be positive"))
	}
	switch c.Storage.Type {
	case "minio", "local":
	default:
		errs = append(errs, errors.New("STORAGE_TYPE must be minio or local"))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("40s") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
