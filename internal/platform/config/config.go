// Package config loads server configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the server needs at startup.
type Config struct {
	Env      string `mapstructure:"APP_ENV"`
	Addr     string `mapstructure:"HTTP_ADDR"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// DatabaseURL is the Postgres DSN. Empty selects the in-memory stores.
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxOpenConns  int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns  int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnLifetime  time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	MigrateOnStart  bool          `mapstructure:"MIGRATE_ON_START"`
	// SeedDemoData loads a demo organization into the in-memory stores.
	SeedDemoData    bool          `mapstructure:"SEED_DEMO_DATA"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MaxBodyBytes    int64         `mapstructure:"MAX_BODY_BYTES"`
	TrustedProxies  string        `mapstructure:"TRUSTED_PROXIES"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTAccessTTL  string `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	BcryptCost    int    `mapstructure:"BCRYPT_COST"`

	StripeSecretKey         string        `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret     string        `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripeProPriceID        string        `mapstructure:"STRIPE_PRO_PRICE_ID"`
	StripeEnterprisePriceID string        `mapstructure:"STRIPE_ENTERPRISE_PRICE_ID"`
	CheckoutSuccessURL      string        `mapstructure:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL       string        `mapstructure:"CHECKOUT_CANCEL_URL"`
	CheckoutDraftTTL        time.Duration `mapstructure:"CHECKOUT_DRAFT_TTL"`

	// S3Bucket empty keeps uploads in process memory.
	S3Bucket        string `mapstructure:"S3_BUCKET"`
	S3Region        string `mapstructure:"S3_REGION"`
	S3Endpoint      string `mapstructure:"S3_ENDPOINT"`
	S3AccessKey     string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey     string `mapstructure:"S3_SECRET_KEY"`
	S3UsePathStyle  bool   `mapstructure:"S3_USE_PATH_STYLE"`
	S3PublicBaseURL string `mapstructure:"S3_PUBLIC_BASE_URL"`

	// SMTPHost empty logs outgoing mail instead of sending it.
	SMTPHost       string  `mapstructure:"SMTP_HOST"`
	SMTPPort       int     `mapstructure:"SMTP_PORT"`
	SMTPUsername   string  `mapstructure:"SMTP_USERNAME"`
	SMTPPassword   string  `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom       string  `mapstructure:"SMTP_FROM"`
	EmailRate      float64 `mapstructure:"EMAIL_RATE_PER_SECOND"`
	EmailWorkers   int     `mapstructure:"EMAIL_WORKERS"`
	EmailQueueSize int     `mapstructure:"EMAIL_QUEUE_SIZE"`

	SweepSchedule      string `mapstructure:"SWEEP_SCHEDULE"`
	SweepTimezone      string `mapstructure:"SWEEP_TIMEZONE"`
	DraftPurgeSchedule string `mapstructure:"DRAFT_PURGE_SCHEDULE"`
}

const devSigningKey = "dev-secret-key-change-in-production"

// Load reads .env (if present), then the environment. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", ":5000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("MIGRATE_ON_START", true)
	v.SetDefault("SEED_DEMO_DATA", false)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("JWT_SIGNING_KEY", devSigningKey)
	v.SetDefault("JWT_ISSUER", "orbit")
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("JWT_REFRESH_TTL", "168h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("STRIPE_PRO_PRICE_ID", "")
	v.SetDefault("STRIPE_ENTERPRISE_PRICE_ID", "")
	v.SetDefault("CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success")
	v.SetDefault("CHECKOUT_CANCEL_URL", "http://localhost:3000/checkout/cancel")
	v.SetDefault("CHECKOUT_DRAFT_TTL", "24h")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_USE_PATH_STYLE", false)
	v.SetDefault("S3_PUBLIC_BASE_URL", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "no-reply@orbit.local")
	v.SetDefault("EMAIL_RATE_PER_SECOND", 5)
	v.SetDefault("EMAIL_WORKERS", 2)
	v.SetDefault("EMAIL_QUEUE_SIZE", 256)
	v.SetDefault("SWEEP_SCHEDULE", "0 9 * * *")
	v.SetDefault("SWEEP_TIMEZONE", "Asia/Karachi")
	v.SetDefault("DRAFT_PURGE_SCHEDULE", "0 * * * *")
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.IsProduction() && c.JWTSigningKey == devSigningKey {
		return errors.New("config: JWT_SIGNING_KEY must be set when APP_ENV=production")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.SMTPHost != "" && c.SMTPPort <= 0 {
		return errors.New("config: SMTP_PORT must be positive")
	}
	if _, err := time.LoadLocation(c.SweepTimezone); err != nil {
		return fmt.Errorf("config: SWEEP_TIMEZONE: %w", err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AccessTTL parses JWTAccessTTL. Returns 1h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// SweepLocation is the timezone the daily jobs run in. Load already
// validated the name, so a failure here falls back to UTC.
func (c *Config) SweepLocation() *time.Location {
	loc, err := time.LoadLocation(c.SweepTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TrustedProxyList splits the comma-separated TRUSTED_PROXIES value.
func (c *Config) TrustedProxyList() []string {
	if c.TrustedProxies == "" {
		return nil
	}
	parts := strings.Split(c.TrustedProxies, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
