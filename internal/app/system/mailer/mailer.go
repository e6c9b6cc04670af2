// Package mailer renders transactional email and hands it to the waffle
// SMTP sender.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/email"
	"go.uber.org/zap"
)

// Email is one outbound message. Either body may be empty.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// Sender is what listeners depend on, so tests can capture mail.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// transport is the part of email.Sender the Mailer drives.
type transport interface {
	SendHTML(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// Mailer delivers Email values through an SMTP relay.
type Mailer struct {
	host string
	smtp transport
	log  *zap.Logger
}

// New returns a Mailer. Port 465 uses implicit TLS, every other port
// requires STARTTLS.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := email.NewSender(email.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.Username,
		Password:    cfg.Password,
		FromAddress: cfg.From,
		FromName:    cfg.FromName,
		UseSSL:      cfg.Port == 465,
		Timeout:     cfg.Timeout,
	})
	return &Mailer{host: cfg.Host, smtp: s, log: logger}
}

// Send delivers e. Empty recipients are rejected.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if strings.TrimSpace(e.To) == "" {
		return errors.New("mailer: recipient is required")
	}
	if m.host == "" {
		return errors.New("mailer: smtp host not configured")
	}
	if e.TextBody == "" && e.HTMLBody == "" {
		return errors.New("mailer: message body is empty")
	}
	if err := m.smtp.SendHTML(ctx, e.To, e.Subject, e.TextBody, e.HTMLBody); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", e.To, err)
	}
	m.log.Debug("email sent", zap.String("to", e.To), zap.String("subject", e.Subject))
	return nil
}
