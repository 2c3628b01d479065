// Package config provides configuration for the hospital server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Env      string `mapstructure:"ENV"`
	HTTPPort int    `mapstructure:"HTTP_PORT"`

	// Database
	DatabasePath string `mapstructure:"DATABASE_PATH"`

	// Logging
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// CORSOrigins lists the dashboard origins. "*" allows any origin but
	// without credentials, so a cross-origin dashboard needs its origin here.
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Operator session
	SessionSecret string        `mapstructure:"SESSION_SECRET"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`
	AdminUsername string        `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string        `mapstructure:"ADMIN_PASSWORD"`

	// Mail
	HospitalEmail  string        `mapstructure:"HOSPITAL_EMAIL"`
	SMTPHost       string        `mapstructure:"SMTP_HOST"`
	SMTPPort       int           `mapstructure:"SMTP_PORT"`
	SMTPUsername   string        `mapstructure:"SMTP_USERNAME"`
	SMTPPassword   string        `mapstructure:"SMTP_PASSWORD"`
	IMAPHost       string        `mapstructure:"IMAP_HOST"`
	IMAPPort       int           `mapstructure:"IMAP_PORT"`
	IMAPSentFolder string        `mapstructure:"IMAP_SENT_FOLDER"`
	MailTimeout    time.Duration `mapstructure:"MAIL_TIMEOUT"`

	// Reply reconciliation
	ReplyCheckInterval time.Duration `mapstructure:"REPLY_CHECK_INTERVAL"`
	ReplyCheckDelay    time.Duration `mapstructure:"REPLY_CHECK_DELAY"`
	ReplyBatchSize     int           `mapstructure:"REPLY_BATCH_SIZE"`
	ReplyMinLength     int           `mapstructure:"REPLY_MIN_LENGTH"`

	// Locks
	RedisURL string        `mapstructure:"REDIS_URL"`
	LockTTL  time.Duration `mapstructure:"LOCK_TTL"`

	// Live feed
	WSPingInterval   time.Duration `mapstructure:"WS_PING_INTERVAL"`
	WSWriteTimeout   time.Duration `mapstructure:"WS_WRITE_TIMEOUT"`
	WSReadTimeout    time.Duration `mapstructure:"WS_READ_TIMEOUT"`
	WSMaxMessageSize int64         `mapstructure:"WS_MAX_MESSAGE_SIZE"`

	// Dashboard display offsets
	StatsPatientBase int `mapstructure:"STATS_PATIENT_BASE"`
	StatsDoctorBase  int `mapstructure:"STATS_DOCTOR_BASE"`
}

var defaults = map[string]interface{}{
	"ENV":                  "development",
	"HTTP_PORT":            3000,
	"DATABASE_PATH":        "hospital.db",
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "json",
	"CORS_ORIGINS":         "*",
	"SESSION_SECRET":       "",
	"SESSION_TTL":          "24h",
	"ADMIN_USERNAME":       "admin",
	"ADMIN_PASSWORD":       "admin123",
	"HOSPITAL_EMAIL":       "",
	"SMTP_HOST":            "smtp.gmail.com",
	"SMTP_PORT":            587,
	"SMTP_USERNAME":        "",
	"SMTP_PASSWORD":        "",
	"IMAP_HOST":            "imap.gmail.com",
	"IMAP_PORT":            993,
	"IMAP_SENT_FOLDER":     "[Gmail]/Sent Mail",
	"MAIL_TIMEOUT":         "30s",
	"REPLY_CHECK_INTERVAL": "2m",
	"REPLY_CHECK_DELAY":    "5s",
	"REPLY_BATCH_SIZE":     50,
	"REPLY_MIN_LENGTH":     6,
	"REDIS_URL":            "",
	"LOCK_TTL":             "2m",
	"WS_PING_INTERVAL":     "30s",
	"WS_WRITE_TIMEOUT":     "10s",
	"WS_READ_TIMEOUT":      "60s",
	"WS_MAX_MESSAGE_SIZE":  4096,
	"STATS_PATIENT_BASE":   0,
	"STATS_DOCTOR_BASE":    0,
}

// devSessionSecret signs cookies when ENV=development and no secret is set.
const devSessionSecret = "development-only-session-secret"

// Load loads configuration from the environment, reading .env first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
		// Bind explicitly so Unmarshal sees env-only keys.
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	if cfg.SessionSecret == "" && cfg.IsDev() {
		cfg.SessionSecret = devSessionSecret
	}
	if cfg.HospitalEmail == "" {
		cfg.HospitalEmail = cfg.SMTPUsername
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// MailEnabled reports whether SMTP and IMAP credentials are configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPUsername != "" && c.SMTPPassword != ""
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required outside development")
	}
	if c.DatabasePath == "" {
		return errors.New("DATABASE_PATH is required")
	}
	if c.HTTPPort <= 0 {
		return fmt.Errorf("HTTP_PORT must be positive, got %d", c.HTTPPort)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.ReplyBatchSize <= 0 {
		return fmt.Errorf("REPLY_BATCH_SIZE must be positive, got %d", c.ReplyBatchSize)
	}
	if c.ReplyCheckInterval <= 0 {
		return fmt.Errorf("REPLY_CHECK_INTERVAL must be positive, got %s", c.ReplyCheckInterval)
	}
	return nil
}
