// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-blogcms-development-secret"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env         string `mapstructure:"APP_ENV"`
	Port        string `mapstructure:"PORT"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	JWTSecret     string `mapstructure:"JWT_SECRET"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTAudience   string `mapstructure:"JWT_AUDIENCE"`
	TokenTTLHours int    `mapstructure:"TOKEN_TTL_HOURS"`

	DBDriver                 string `mapstructure:"DB_DRIVER"`
	SQLitePath               string `mapstructure:"SQLITE_PATH"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	SchemaMode               string `mapstructure:"SCHEMA_MODE"`

	RedisURL     string `mapstructure:"REDIS_URL"`
	FeatureFlags string `mapstructure:"FEATURE_FLAGS"`

	UploadDir       string `mapstructure:"UPLOAD_DIR"`
	UploadMaxSizeMB int    `mapstructure:"UPLOAD_MAX_SIZE_MB"`
	StorageBackend  string `mapstructure:"STORAGE_BACKEND"`
	S3Bucket        string `mapstructure:"S3_BUCKET"`
	S3Region        string `mapstructure:"S3_REGION"`
	S3Endpoint      string `mapstructure:"S3_ENDPOINT"`
	S3AccessKey     string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey     string `mapstructure:"S3_SECRET_KEY"`
	S3PublicBaseURL string `mapstructure:"S3_PUBLIC_BASE_URL"`
	PreviewMaxWidth int    `mapstructure:"PREVIEW_MAX_WIDTH"`
	PreviewQuality  int    `mapstructure:"PREVIEW_QUALITY"`

	FeedProvider            string `mapstructure:"FEED_PROVIDER"`
	RSSFeedURL              string `mapstructure:"RSS_FEED_URL"`
	InstagramClientID       string `mapstructure:"INSTAGRAM_CLIENT_ID"`
	InstagramClientSecret   string `mapstructure:"INSTAGRAM_CLIENT_SECRET"`
	InstagramRedirectURI    string `mapstructure:"INSTAGRAM_REDIRECT_URI"`
	InstagramAccessToken    string `mapstructure:"INSTAGRAM_ACCESS_TOKEN"`
	InstagramVerifyToken    string `mapstructure:"INSTAGRAM_VERIFY_TOKEN"`
	InstagramAPIURL         string `mapstructure:"INSTAGRAM_API_URL"`
	InstagramMaxPages       int    `mapstructure:"INSTAGRAM_MAX_PAGES"`
	InstagramTimeoutSeconds int    `mapstructure:"INSTAGRAM_TIMEOUT_SECONDS"`
	InstagramSyncSchedule   string `mapstructure:"INSTAGRAM_SYNC_SCHEDULE"`

	BootstrapAdminUsername string `mapstructure:"BOOTSTRAP_ADMIN_USERNAME"`
	BootstrapAdminPassword string `mapstructure:"BOOTSTRAP_ADMIN_PASSWORD"`
	BootstrapAdminEmail    string `mapstructure:"BOOTSTRAP_ADMIN_EMAIL"`

	TracingExporter string `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	env := v.GetString("APP_ENV")
	if env != "" && env != "development" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err == nil {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	// AutomaticEnv only applies to keys viper already knows about, and every
	// key has a default, so Unmarshal sees environment overrides.
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "3001")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "blogcms-api")
	v.SetDefault("JWT_AUDIENCE", "blogcms-admin")
	v.SetDefault("TOKEN_TTL_HOURS", 24)

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("SQLITE_PATH", "blog.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "blog")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "blog")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	v.SetDefault("SCHEMA_MODE", "auto")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("FEATURE_FLAGS", "media_previews=on")

	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UPLOAD_MAX_SIZE_MB", 50)
	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_PUBLIC_BASE_URL", "")
	v.SetDefault("PREVIEW_MAX_WIDTH", 480)
	v.SetDefault("PREVIEW_QUALITY", 80)

	v.SetDefault("FEED_PROVIDER", "instagram")
	v.SetDefault("RSS_FEED_URL", "")
	v.SetDefault("INSTAGRAM_CLIENT_ID", "")
	v.SetDefault("INSTAGRAM_CLIENT_SECRET", "")
	v.SetDefault("INSTAGRAM_REDIRECT_URI", "http://localhost:3001/api/instagram/callback")
	v.SetDefault("INSTAGRAM_ACCESS_TOKEN", "")
	v.SetDefault("INSTAGRAM_VERIFY_TOKEN", "instagram_webhook_verify_token")
	v.SetDefault("INSTAGRAM_API_URL", "https://graph.instagram.com")
	v.SetDefault("INSTAGRAM_MAX_PAGES", 5)
	v.SetDefault("INSTAGRAM_TIMEOUT_SECONDS", 30)
	v.SetDefault("INSTAGRAM_SYNC_SCHEDULE", "")

	v.SetDefault("BOOTSTRAP_ADMIN_USERNAME", "admin")
	v.SetDefault("BOOTSTRAP_ADMIN_PASSWORD", "admin123")
	v.SetDefault("BOOTSTRAP_ADMIN_EMAIL", "admin@blog.com")

	v.SetDefault("TRACING_EXPORTER", "none")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
}

// IsProduction reports whether the configured environment is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// TokenTTL is the lifetime of issued session tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// MaxUploadBytes is the upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.UploadMaxSizeMB) << 20
}

// InstagramTimeout bounds a single upstream feed fetch.
func (c *Config) InstagramTimeout() time.Duration {
	return time.Duration(c.InstagramTimeoutSeconds) * time.Second
}

// ConnMaxLifetime is the pooled connection lifetime.
func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.DBConnMaxLifetimeMinutes) * time.Minute
}

// AllowedOrigins returns FRONTEND_URL as a CORS origin list.
func (c *Config) AllowedOrigins() string {
	parts := strings.Split(c.FrontendURL, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TokenTTLHours <= 0 {
		return errors.New("TOKEN_TTL_HOURS must be positive")
	}
	if c.UploadMaxSizeMB <= 0 {
		return errors.New("UPLOAD_MAX_SIZE_MB must be positive")
	}

	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.SchemaMode {
	case "auto", "sql":
	default:
		return fmt.Errorf("unsupported SCHEMA_MODE %q", c.SchemaMode)
	}
	switch c.StorageBackend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.FeedProvider {
	case "instagram":
	case "rss":
		if c.RSSFeedURL == "" {
			return errors.New("RSS_FEED_URL is required when FEED_PROVIDER=rss")
		}
	default:
		return fmt.Errorf("unsupported FEED_PROVIDER %q", c.FeedProvider)
	}
	switch c.TracingExporter {
	case "", "none", "stdout", "otlp":
	default:
		return fmt.Errorf("unsupported TRACING_EXPORTER %q", c.TracingExporter)
	}

	if c.InstagramSyncSchedule != "" {
		if _, err := cron.ParseStandard(c.InstagramSyncSchedule); err != nil {
			return fmt.Errorf("invalid INSTAGRAM_SYNC_SCHEDULE: %w", err)
		}
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBDriver == "postgres" && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.BootstrapAdminPassword == "admin123" {
			log.Println("WARNING: BOOTSTRAP_ADMIN_PASSWORD is the default value in production.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
