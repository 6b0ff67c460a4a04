package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/irrelevantclub/toolkit-backend/internal/config"
)

var ErrNotConfigured = errors.New("email provider not configured")

// Message is one outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a message through an email provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender builds the sender selected by cfg.EmailProvider. A provider with
// missing credentials yields a sender that fails every send, so the service
// still starts and the failure shows up in the logs.
func NewSender(ctx context.Context, cfg *config.Config) (Sender, error) {
	switch cfg.EmailProvider {
	case "mailgun":
		if cfg.MailgunAPIKey == "" || cfg.MailgunDomain == "" || cfg.SenderEmail == "" {
			slog.Error("mailgun configuration incomplete; emails will not be sent")
			return unconfigured{provider: "mailgun"}, nil
		}
		return NewMailgunSender(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase), nil
	case "ses":
		if cfg.SenderEmail == "" {
			slog.Error("ses sender address missing; emails will not be sent")
			return unconfigured{provider: "ses"}, nil
		}
		return NewSESSender(ctx, cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
	case "log":
		return LogSender{}, nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}
}

type unconfigured struct {
	provider string
}

func (u unconfigured) Send(context.Context, Message) error {
	return fmt.Errorf("%s: %w", u.provider, ErrNotConfigured)
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "email not delivered (log provider)",
		"to", strings.Join(msg.To, ","),
		"subject", msg.Subject,
	)
	return nil
}
