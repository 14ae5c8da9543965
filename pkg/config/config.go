package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Cron         CronConfig
	Reminders    ReminderConfig
	Mailer       MailerConfig
	Storage      StorageConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MAYORISTA_APP_ENV" required:"true"`
	Port         string `envconfig:"MAYORISTA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MAYORISTA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MAYORISTA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"MAYORISTA_DB_DSN"`

	Host     string `envconfig:"MAYORISTA_DB_HOST"`
	Port     int    `envconfig:"MAYORISTA_DB_PORT" default:"5432"`
	User     string `envconfig:"MAYORISTA_DB_USER"`
	Password string `envconfig:"MAYORISTA_DB_PASSWORD"`
	Name     string `envconfig:"MAYORISTA_DB_NAME"`
	SSLMode  string `envconfig:"MAYORISTA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MAYORISTA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MAYORISTA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MAYORISTA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MAYORISTA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either MAYORISTA_DB_DSN or host/user/name settings are required")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"MAYORISTA_REDIS_URL"`
	Address      string        `envconfig:"MAYORISTA_REDIS_ADDR"`
	Password     string        `envconfig:"MAYORISTA_REDIS_PASSWORD"`
	DB           int           `envconfig:"MAYORISTA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MAYORISTA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MAYORISTA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MAYORISTA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MAYORISTA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MAYORISTA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MAYORISTA_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"MAYORISTA_CRON_LOCK_TTL" default:"1h"`
}

// ReminderConfig tunes the pending-sale reminder thresholds. Defaults match
// the historical behavior: skip sales younger than a day, start emailing at
// ten days, escalate to admins at thirty, re-email every ten days.
type ReminderConfig struct {
	MinAge          time.Duration `envconfig:"MAYORISTA_REMINDER_MIN_AGE" default:"24h"`
	EmailAfterDays  int           `envconfig:"MAYORISTA_REMINDER_EMAIL_AFTER_DAYS" default:"10"`
	AdminAfterDays  int           `envconfig:"MAYORISTA_REMINDER_ADMIN_AFTER_DAYS" default:"30"`
	EmailEveryDays  int           `envconfig:"MAYORISTA_REMINDER_EMAIL_EVERY_DAYS" default:"10"`
}

type MailerConfig struct {
	APIKey    string        `envconfig:"MAYORISTA_SENDGRID_API_KEY"`
	FromEmail string        `envconfig:"MAYORISTA_MAIL_FROM_EMAIL" default:"no-reply@elmayorista.app"`
	FromName  string        `envconfig:"MAYORISTA_MAIL_FROM_NAME" default:"El Mayorista"`
	Timeout   time.Duration `envconfig:"MAYORISTA_MAIL_TIMEOUT" default:"10s"`
}

// Enabled reports whether outbound email is configured at all. When false
// the mailer degrades to a logged no-op.
func (m MailerConfig) Enabled() bool {
	return m.APIKey != ""
}

type StorageConfig struct {
	BucketName             string        `envconfig:"MAYORISTA_GCS_BUCKET"`
	CredentialsJSON        string        `envconfig:"MAYORISTA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string        `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	Timeout                time.Duration `envconfig:"MAYORISTA_GCS_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MAYORISTA_AUTO_MIGRATE" default:"false"`
}
