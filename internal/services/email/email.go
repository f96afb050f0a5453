// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email composes and delivers the portal's transactional mail.
// Delivery is a single attempt; failures are surfaced to the caller and
// never retried here.
package email

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/vuportal/authportal/internal/config"
	"github.com/vuportal/authportal/internal/i18n"
	"github.com/wneessen/go-mail"
)

// Service sends verification and password reset emails via SMTP.
type Service struct {
	cfg       *config.SMTPConfig
	baseURL   string
	otpExpiry time.Duration
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig, baseURL string, otpExpiry time.Duration) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{
		cfg:       cfg,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		otpExpiry: otpExpiry,
	}, nil
}

// VerifyURL builds the magic link embedding the given token.
func (s *Service) VerifyURL(token string) string {
	return fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, url.QueryEscape(token))
}

// SendVerification delivers one email carrying both the numeric code and
// the magic link for the given token.
func (s *Service) SendVerification(ctx context.Context, toEmail, code, token string) error {
	subject := i18n.T(ctx, "verification_email_subject")
	body := i18n.TData(ctx, "verification_email_body", map[string]any{
		"Code":          code,
		"VerifyURL":     s.VerifyURL(token),
		"ExpiryMinutes": int(s.otpExpiry.Minutes()),
	})

	return s.send(toEmail, subject, body)
}

// SendPasswordReset delivers a password reset code.
func (s *Service) SendPasswordReset(ctx context.Context, toEmail, code string) error {
	subject := i18n.T(ctx, "reset_email_subject")
	body := i18n.TData(ctx, "reset_email_body", map[string]any{
		"Code":          code,
		"ExpiryMinutes": int(s.otpExpiry.Minutes()),
	})

	return s.send(toEmail, subject, body)
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	// Build client options
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Configure TLS based on config and port
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	// Add authentication if credentials are provided
	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
