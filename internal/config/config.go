package config

import (
	"os"
	"strconv"
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

// StorageConfig selects the storage driver for accepted files.
// Driver is "minio" or "local"; LocalDir is only used by the local driver.
type StorageConfig struct {
	Driver   string
	LocalDir string
}

// UploadConfig holds the intake ceilings. The secure-upload path and the
// OCR extraction path have independent limits so neither call site shares
// a hard-coded constant with the other.
type UploadConfig struct {
	MaxUploadBytes int64
	MaxOCRBytes    int64
}

// AuthConfig controls the credential check on protected routes.
// When JWTSecret is empty only credential presence is required; when set,
// the bearer token / cookie value must be a valid HS256 token.
type AuthConfig struct {
	JWTSecret string
}

// RateLimitConfig holds per-IP request limiting settings. When RedisAddr
// is empty an in-process store is used instead of Redis.
type RateLimitConfig struct {
	Enabled       bool
	Limit         int64
	WindowSec     int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// OCRConfig points at the external document extraction service.
type OCRConfig struct {
	Endpoint   string
	TimeoutSec int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost   string
	Port      string
	Database  DatabaseConfig
	MinIO     MinIOConfig
	Storage   StorageConfig
	Upload    UploadConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	OCR       OCRConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
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
			Driver:   getEnv("STORAGE_DRIVER", "minio"),
			LocalDir: getEnv("STORAGE_LOCAL_DIR", "uploads"),
		},
		Upload: UploadConfig{
			MaxUploadBytes: getEnvInt64("UPLOAD_MAX_BYTES", 5*1024*1024),
			MaxOCRBytes:    getEnvInt64("OCR_MAX_BYTES", 10*1024*1024),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", true),
			Limit:         getEnvInt64("RATE_LIMIT_MAX", 30),
			WindowSec:     getEnvInt("RATE_LIMIT_WINDOW_SEC", 60),
			RedisAddr:     getEnv("RATE_LIMIT_REDIS_ADDR", ""),
			RedisPassword: getEnv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("RATE_LIMIT_REDIS_DB", 0),
		},
		OCR: OCRConfig{
			Endpoint:   getEnv("OCR_ENDPOINT", ""),
			TimeoutSec: getEnvInt("OCR_TIMEOUT_SEC", 30),
		},
	}
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

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}
