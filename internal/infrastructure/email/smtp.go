package email

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/infrastructure/config"
)

// ErrEmailDisabled is returned when the sender is not enabled in configuration.
var ErrEmailDisabled = errors.New("email sender is disabled")

// Sender delivers a plain-text email to a single recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
	Enabled() bool
}

// sendMailFunc matches smtp.SendMail, injectable for tests.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers email through a plain SMTP relay with AUTH PLAIN.
type SMTPSender struct {
	config   *config.EmailConfig
	sendMail sendMailFunc
	logger   *zap.Logger
}

// NewSMTPSender creates a sender from the SMTP configuration.
func NewSMTPSender(cfg *config.EmailConfig, logger *zap.Logger) (*SMTPSender, error) {
	if cfg.Enabled {
		if cfg.Host == "" || cfg.Port == 0 {
			return nil, fmt.Errorf("email sender enabled but host/port are missing")
		}
		if cfg.From == "" {
			return nil, fmt.Errorf("email sender enabled but from address is empty")
		}
	}

	return &SMTPSender{
		config:   cfg,
		sendMail: smtp.SendMail,
		logger:   logger,
	}, nil
}

// Enabled reports whether the sender is configured for delivery.
func (s *SMTPSender) Enabled() bool {
	return s.config.Enabled
}

// AdminEmail returns the configured recipient for operational reports.
func (s *SMTPSender) AdminEmail() string {
	return s.config.AdminEmail
}

// Send delivers a plain-text message. The context is checked before dialing;
// net/smtp itself does not support cancellation mid-session.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if !s.config.Enabled {
		return ErrEmailDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	msg := buildMessage(s.config.From, to, subject, body)

	if err := s.sendMail(addr, auth, s.config.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}

	s.logger.Debug("email sent",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
