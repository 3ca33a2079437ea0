package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Requests     RequestsConfig
	Uploads      UploadsConfig
	Imports      ImportsConfig
	Certificates CertificatesConfig
	Stats        StatsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RequestsConfig governs the document-request workflow.
type RequestsConfig struct {
	// ExpectedDays is the default processing-day count used for the
	// expected-release countdown when no per-type override exists.
	ExpectedDays int
	// ScheduleMinOffsetDays and ScheduleMaxOffsetDays bound the selectable
	// release date relative to "today" in the canonical zone.
	ScheduleMinOffsetDays int
	ScheduleMaxOffsetDays int
	// Timezone anchors all date-only arithmetic. The portal serves one
	// institution, so a single fixed zone avoids off-by-one-day drift
	// between server and browser clocks.
	Timezone string
}

// UploadsConfig controls bulk document uploads.
type UploadsConfig struct {
	StorageDir       string
	MaxBatchSize     int
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	// DownloadDelay is inserted between files in a download-all batch so a
	// burst of reads does not starve the storage backend.
	DownloadDelay time.Duration
}

// ImportsConfig bounds spreadsheet ingestion.
type ImportsConfig struct {
	MaxRows int
}

// CertificatesConfig controls template-generated document rendering.
type CertificatesConfig struct {
	StorageDir        string
	SchoolName        string
	SchoolAddress     string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// StatsConfig tunes request-stats caching.
type StatsConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Requests = RequestsConfig{
		ExpectedDays:          v.GetInt("REQUESTS_EXPECTED_DAYS"),
		ScheduleMinOffsetDays: v.GetInt("REQUESTS_SCHEDULE_MIN_OFFSET_DAYS"),
		ScheduleMaxOffsetDays: v.GetInt("REQUESTS_SCHEDULE_MAX_OFFSET_DAYS"),
		Timezone:              v.GetString("REQUESTS_TIMEZONE"),
	}

	maxUploadSize := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 10 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		StorageDir:       v.GetString("UPLOADS_STORAGE_DIR"),
		MaxBatchSize:     v.GetInt("UPLOADS_MAX_BATCH_SIZE"),
		MaxFileSizeBytes: maxUploadSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("UPLOADS_ALLOWED_MIME_TYPES")),
		SignedURLSecret:  v.GetString("UPLOADS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("UPLOADS_SIGNED_URL_TTL"), 30*time.Minute),
		DownloadDelay:    parseDuration(v.GetString("UPLOADS_DOWNLOAD_DELAY"), 300*time.Millisecond),
	}

	cfg.Imports = ImportsConfig{
		MaxRows: v.GetInt("IMPORTS_MAX_ROWS"),
	}

	cfg.Certificates = CertificatesConfig{
		StorageDir:        v.GetString("CERTIFICATES_STORAGE_DIR"),
		SchoolName:        v.GetString("CERTIFICATES_SCHOOL_NAME"),
		SchoolAddress:     v.GetString("CERTIFICATES_SCHOOL_ADDRESS"),
		SignedURLSecret:   v.GetString("CERTIFICATES_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("CERTIFICATES_SIGNED_URL_TTL"), 24*time.Hour),
		WorkerConcurrency: v.GetInt("CERTIFICATES_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("CERTIFICATES_WORKER_RETRIES"),
	}

	cfg.Stats = StatsConfig{
		CacheTTL: parseDuration(v.GetString("STATS_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "registrar_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "registrar-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REQUESTS_EXPECTED_DAYS", 7)
	v.SetDefault("REQUESTS_SCHEDULE_MIN_OFFSET_DAYS", 1)
	v.SetDefault("REQUESTS_SCHEDULE_MAX_OFFSET_DAYS", 30)
	v.SetDefault("REQUESTS_TIMEZONE", "Asia/Manila")

	v.SetDefault("UPLOADS_STORAGE_DIR", "./uploads")
	v.SetDefault("UPLOADS_MAX_BATCH_SIZE", 10)
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("UPLOADS_ALLOWED_MIME_TYPES", "application/pdf")
	v.SetDefault("UPLOADS_SIGNED_URL_SECRET", "dev_uploads_secret")
	v.SetDefault("UPLOADS_SIGNED_URL_TTL", "30m")
	v.SetDefault("UPLOADS_DOWNLOAD_DELAY", "300ms")

	v.SetDefault("IMPORTS_MAX_ROWS", 2000)

	v.SetDefault("CERTIFICATES_STORAGE_DIR", "./certificates")
	v.SetDefault("CERTIFICATES_SCHOOL_NAME", "")
	v.SetDefault("CERTIFICATES_SCHOOL_ADDRESS", "")
	v.SetDefault("CERTIFICATES_SIGNED_URL_SECRET", "dev_certificates_secret")
	v.SetDefault("CERTIFICATES_SIGNED_URL_TTL", "24h")
	v.SetDefault("CERTIFICATES_WORKER_CONCURRENCY", 1)
	v.SetDefault("CERTIFICATES_WORKER_RETRIES", 3)

	v.SetDefault("STATS_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
