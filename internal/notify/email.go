// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package notify

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/rapidride/verifyd/internal/config"
	"github.com/rapidride/verifyd/internal/i18n"
)

// EmailSender delivers notifications over SMTP using go-mail.
type EmailSender struct {
	cfg *config.SMTPConfig
}

// NewEmailSender creates an SMTP-backed sender.
func NewEmailSender(cfg *config.SMTPConfig) (*EmailSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &EmailSender{cfg: cfg}, nil
}

// SendCode mails a verification code.
func (s *EmailSender) SendCode(ctx context.Context, identity, code string, ttl time.Duration) error {
	subject := i18n.T(ctx, "otp_email_subject")
	minutes := int(math.Round(ttl.Minutes()))
	body := i18n.TData(ctx, "otp_email_body", map[string]any{
		"Code":     code,
		"Validity": i18n.TPlural(ctx, "otp_validity", minutes),
	})
	if err := s.send(identity, subject, body); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

// SendWelcome mails the post-signup greeting.
func (s *EmailSender) SendWelcome(ctx context.Context, identity, name string) error {
	subject := i18n.T(ctx, "welcome_email_subject")
	body := i18n.TData(ctx, "welcome_email_body", map[string]any{"Name": name})
	if err := s.send(identity, subject, body); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

// SendPasswordChanged mails the password-change notice.
func (s *EmailSender) SendPasswordChanged(ctx context.Context, identity, name string) error {
	subject := i18n.T(ctx, "password_changed_email_subject")
	body := i18n.TData(ctx, "password_changed_email_body", map[string]any{"Name": name})
	if err := s.send(identity, subject, body); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

func (s *EmailSender) send(to, subject, body string) error {
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
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS for port 465, STARTTLS otherwise.
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

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
