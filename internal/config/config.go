package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// DefaultSecretKey is the development signing key; it is refused in production.
const DefaultSecretKey = "dev-key-change-in-production"

// TokenTTL is the fixed validity window of issued tokens.
const TokenTTL = 30 * 24 * time.Hour

// Config is read once at startup and passed explicitly to every component.
type Config struct {
	// Server
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"8080"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	SentryDSN   string `env:"SENTRY_DSN"`

	// Database. The scheme picks the backend: mongodb://, postgres:// or memory://.
	DatabaseURL  string        `env:"DATABASE_URL" envDefault:"mongodb://localhost:27017/irrelevant-toolkit"`
	LogRetention time.Duration `env:"LOG_RETENTION" envDefault:"720h"`

	// Tokens
	SecretKey    string `env:"SECRET_KEY" envDefault:"dev-key-change-in-production"`
	SecretPhrase string `env:"SECRET_PHRASE" envDefault:"soy irrelevant club"`
	TokenTTL     time.Duration

	// Registration
	StrictUserTypes bool `env:"STRICT_USER_TYPES" envDefault:"false"`

	// Email
	EmailProvider      string        `env:"EMAIL_PROVIDER" envDefault:"mailgun"`
	MailgunAPIKey      string        `env:"MAILGUN_API_KEY"`
	MailgunDomain      string        `env:"MAILGUN_DOMAIN" envDefault:"sandbox8b842af5fbad4b598617e8be8a7e0e8b.mailgun.org"`
	MailgunAPIBase     string        `env:"MAILGUN_API_BASE"`
	SenderEmail        string        `env:"SENDER_EMAIL" envDefault:"mailgun@sandbox8b842af5fbad4b598617e8be8a7e0e8b.mailgun.org"`
	SenderName         string        `env:"SENDER_NAME" envDefault:"Irrelevant Club"`
	AWSRegion          string        `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSAccessKeyID     string        `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string        `env:"AWS_SECRET_ACCESS_KEY"`
	SiteURL            string        `env:"SITE_URL" envDefault:"https://stayirrelevant.com"`
	NotifyTimeout      time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"15s"`

	// Admin
	AdminEmails string `env:"ADMIN_EMAILS"`
	AdminToken  string `env:"ADMIN_TOKEN"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.TokenTTL = TokenTTL
	cfg.EmailProvider = strings.ToLower(strings.TrimSpace(cfg.EmailProvider))
	return cfg, nil
}

// Validate rejects settings that must never reach production.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY must not be empty")
	}
	if c.IsProduction() && c.SecretKey == DefaultSecretKey {
		return fmt.Errorf("SECRET_KEY must be set in production")
	}
	if strings.TrimSpace(c.SecretPhrase) == "" {
		return fmt.Errorf("SECRET_PHRASE must not be empty")
	}
	switch c.EmailProvider {
	case "mailgun", "ses", "log":
	default:
		return fmt.Errorf("unknown EMAIL_PROVIDER %q", c.EmailProvider)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// AdminEmailList returns the operator addresses that receive registration alerts.
func (c *Config) AdminEmailList() []string {
	return parseCSV(c.AdminEmails)
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
