// Package notifier delivers operator alerts.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendPath = "/v3/mail/send"

var ErrDeliveryFailed = errors.New("alert delivery failed")

type Config struct {
	APIKey     string
	Host       string
	From       string
	AdminEmail string
	SiteName   string
}

// SendGrid mails alerts to the site administrator.
type SendGrid struct {
	cfg Config
}

func NewSendGrid(cfg Config) *SendGrid {
	return &SendGrid{cfg: cfg}
}

// Notify sends an HTML email with the site name prefixed to subject.
func (s *SendGrid) Notify(ctx context.Context, subject, body string) error {
	const op = "adapter.notifier.SendGrid.Notify"

	from := mail.NewEmail(s.cfg.SiteName, s.cfg.From)
	to := mail.NewEmail("", s.cfg.AdminEmail)
	msg := mail.NewV3MailInit(from, s.subject(subject), to, mail.NewContent("text/html", body))

	req := sendgrid.GetRequest(s.cfg.APIKey, sendPath, s.cfg.Host)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(msg)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrDeliveryFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %w: unexpected status %d: %s", op, ErrDeliveryFailed, resp.StatusCode, resp.Body)
	}

	return nil
}

func (s *SendGrid) subject(subject string) string {
	if s.cfg.SiteName == "" {
		return subject
	}
	return s.cfg.SiteName + ": " + subject
}

// Log writes alerts to the application log. It stands in for SendGrid
// when no API key is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, subject, body string) error {
	l.logger.Warn("alert", slog.String("subject", subject), slog.String("body", body))
	return nil
}
