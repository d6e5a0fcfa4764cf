package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Mail      MailConfig
	NATS      NATSConfig
	Telemetry TelemetryConfig
	Preview   PreviewConfig
	Log       LogConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
	SiteURL     string
}

func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret             string
	SessionExpiresIn   time.Duration
	MagicLinkExpiresIn time.Duration
}

type StorageConfig struct {
	Driver         string
	Bucket         string
	LocalDir       string
	PublicBaseURL  string
	SupabaseURL    string
	SupabaseKey    string
	MaxResumeBytes int64
}

type MailConfig struct {
	Driver       string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	From         string
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
	ConnTimeout   time.Duration
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

type PreviewConfig struct {
	Headless bool
	Timeout  time.Duration
}

type LogConfig struct {
	Level string
	File  string
}

const DefaultMaxResumeBytes = 5 << 20

var errMissingRequiredEnv = errors.New("missing required environment variables")

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{}

	var missing []string
	var invalid []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key, def string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return def
		}
		return v
	}
	dur := func(key string, def time.Duration) time.Duration {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			invalid = append(invalid, key)
			return def
		}
		return d
	}
	num := func(key string, def int64) int64 {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			return def
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			invalid = append(invalid, key)
			return def
		}
		return v
	}
	flag := func(key string) bool {
		v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
		return err == nil && v
	}

	port := req("HTTP_PORT")
	cfg.App = AppConfig{
		AppName:     opt("APP_NAME", "jobtracker"),
		Environment: opt("APP_ENV", "development"),
		HTTPPort:    port,
		SiteURL:     strings.TrimRight(opt("SITE_URL", "http://localhost:"+strings.TrimPrefix(port, ":")), "/"),
	}

	cfg.Database = DatabaseConfig{
		DBHost:     req("DB_HOST"),
		DBPort:     opt("DB_PORT", "5432"),
		DBName:     req("DB_NAME"),
		DBUser:     req("DB_USER"),
		DBPassword: opt("DB_PASSWORD", ""),
		DBSSLMode:  opt("DB_SSL_MODE", "disable"),

		ConnectTimeout:        dur("DB_CONNECT_TIMEOUT", 5*time.Second),
		PoolMaxConns:          int32(num("DB_POOL_MAX_CONNS", 10)),
		PoolMinConns:          int32(num("DB_POOL_MIN_CONNS", 0)),
		PoolMaxConnLifetime:   dur("DB_POOL_MAX_CONN_LIFETIME", time.Hour),
		PoolMaxConnIdleTime:   dur("DB_POOL_MAX_CONN_IDLE_TIME", 30*time.Minute),
		PoolHealthCheckPeriod: dur("DB_POOL_HEALTH_CHECK_PERIOD", time.Minute),
	}

	cfg.Redis = RedisConfig{
		Addr:     opt("REDIS_ADDR", "localhost:6379"),
		Password: opt("REDIS_PASSWORD", ""),
		DB:       int(num("REDIS_DB", 0)),
	}

	cfg.JWT = JWTConfig{
		Secret:             req("JWT_SECRET"),
		SessionExpiresIn:   dur("JWT_SESSION_EXPIRES_IN", 7*24*time.Hour),
		MagicLinkExpiresIn: dur("MAGIC_LINK_EXPIRES_IN", 15*time.Minute),
	}

	cfg.Storage = StorageConfig{
		Driver:         strings.ToLower(opt("STORAGE_DRIVER", "local")),
		Bucket:         opt("STORAGE_BUCKET", "resumes"),
		LocalDir:       opt("STORAGE_LOCAL_DIR", "data/storage"),
		PublicBaseURL:  strings.TrimRight(opt("STORAGE_PUBLIC_BASE_URL", cfg.App.SiteURL), "/"),
		SupabaseURL:    strings.TrimRight(opt("SUPABASE_URL", ""), "/"),
		SupabaseKey:    opt("SUPABASE_SERVICE_KEY", ""),
		MaxResumeBytes: num("MAX_RESUME_BYTES", DefaultMaxResumeBytes),
	}
	if cfg.Storage.Driver == "supabase" {
		req("SUPABASE_URL")
		req("SUPABASE_SERVICE_KEY")
	}

	cfg.Mail = MailConfig{
		Driver:       strings.ToLower(opt("MAIL_DRIVER", "log")),
		SMTPHost:     opt("SMTP_HOST", ""),
		SMTPPort:     opt("SMTP_PORT", "587"),
		SMTPUser:     opt("SMTP_USER", ""),
		SMTPPassword: opt("SMTP_PASSWORD", ""),
		From:         opt("MAIL_FROM", "no-reply@localhost"),
	}
	if cfg.Mail.Driver == "smtp" {
		req("SMTP_HOST")
	}

	cfg.NATS = NATSConfig{
		URL:           opt("NATS_URL", ""),
		SubjectPrefix: opt("NATS_SUBJECT_PREFIX", "job_applications"),
		ConnTimeout:   dur("NATS_CONN_TIMEOUT", 10*time.Second),
	}

	cfg.Telemetry = TelemetryConfig{
		OTLPEndpoint: opt("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  opt("OTEL_SERVICE_NAME", cfg.App.AppName),
	}

	cfg.Preview = PreviewConfig{
		Headless: flag("PREVIEW_HEADLESS"),
		Timeout:  dur("PREVIEW_TIMEOUT", 20*time.Second),
	}

	cfg.Log = LogConfig{
		Level: strings.ToLower(opt("LOG_LEVEL", "info")),
		File:  opt("LOG_FILE", ""),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
