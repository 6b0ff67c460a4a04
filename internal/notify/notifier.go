// Package notify renders and sends the transactional emails triggered by a
// registration.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/irrelevantclub/toolkit-backend/internal/config"
	"github.com/irrelevantclub/toolkit-backend/internal/models"
)

type Notifier struct {
	sender   Sender
	from     string
	admins   []string
	branding Branding
	timeout  time.Duration
	now      func() time.Time

	wg sync.WaitGroup
}

func New(sender Sender, cfg *config.Config) *Notifier {
	from := cfg.SenderEmail
	if cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.SenderName, cfg.SenderEmail)
	}
	timeout := cfg.NotifyTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Notifier{
		sender: sender,
		from:   from,
		admins: cfg.AdminEmailList(),
		branding: Branding{
			ProductName:  cfg.SenderName,
			SiteURL:      cfg.SiteURL,
			SecretPhrase: cfg.SecretPhrase,
		},
		timeout: timeout,
		now:     time.Now,
	}
}

// SendWelcome emails the registrant.
func (n *Notifier) SendWelcome(ctx context.Context, u *models.User) error {
	r, err := RenderWelcome(u, n.branding, n.registeredAt(u))
	if err != nil {
		return fmt.Errorf("render welcome email: %w", err)
	}
	return n.sender.Send(ctx, Message{
		From:    n.from,
		To:      []string{u.Email},
		Subject: r.Subject,
		Text:    r.Text,
		HTML:    r.HTML,
	})
}

// SendAdminAlert emails the operators. It is a no-op without admin addresses.
func (n *Notifier) SendAdminAlert(ctx context.Context, u *models.User) error {
	if len(n.admins) == 0 {
		return nil
	}
	r, err := RenderAdminAlert(u, n.branding, n.registeredAt(u))
	if err != nil {
		return fmt.Errorf("render admin alert: %w", err)
	}
	return n.sender.Send(ctx, Message{
		From:    n.from,
		To:      n.admins,
		Subject: r.Subject,
		Text:    r.Text,
		HTML:    r.HTML,
	})
}

// Dispatch sends both registration emails in the background. Failures are
// logged and reported, never returned.
func (n *Notifier) Dispatch(u models.User) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("notification panic", "user_id", u.ID, "panic", fmt.Sprint(r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		n.report(ctx, "welcome_email", &u, n.SendWelcome(ctx, &u))
		if len(n.admins) > 0 {
			n.report(ctx, "admin_alert", &u, n.SendAdminAlert(ctx, &u))
		}
	}()
}

// Wait blocks until every dispatched notification has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) report(ctx context.Context, action string, u *models.User, err error) {
	if err == nil {
		slog.InfoContext(ctx, "notification sent", "action", action, "user_id", u.ID, "email", u.Email)
		return
	}
	slog.ErrorContext(ctx, "notification failed", "action", action, "user_id", u.ID, "email", u.Email, "error", err)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("action", action)
		scope.SetUser(sentry.User{ID: u.ID})
		sentry.CaptureException(err)
	})
}

func (n *Notifier) registeredAt(u *models.User) time.Time {
	if !u.RegistrationDate.IsZero() {
		return u.RegistrationDate
	}
	return n.now()
}
