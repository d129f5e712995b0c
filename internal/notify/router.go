// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package notify

import (
	"context"
	"log/slog"
	"time"
)

// Router picks a channel per identity: email addresses go to the mail
// sender, everything else to the SMS sender.
type Router struct {
	email Notifier
	sms   Notifier
}

// NewRouter builds a channel router. Either sender may be nil; codes for
// an identity without a configured channel fail with ErrDeliveryFailed.
func NewRouter(email, sms Notifier) *Router {
	return &Router{email: email, sms: sms}
}

func (r *Router) pick(identity string) Notifier {
	if IsEmail(identity) {
		return r.email
	}
	return r.sms
}

// SendCode delivers a verification code over the identity's channel.
func (r *Router) SendCode(ctx context.Context, identity, code string, ttl time.Duration) error {
	n := r.pick(identity)
	if n == nil {
		return ErrDeliveryFailed
	}
	return n.SendCode(ctx, identity, code, ttl)
}

// SendWelcome delivers the post-signup greeting.
func (r *Router) SendWelcome(ctx context.Context, identity, name string) error {
	n := r.pick(identity)
	if n == nil {
		return ErrDeliveryFailed
	}
	return n.SendWelcome(ctx, identity, name)
}

// SendPasswordChanged delivers the password-change notice.
func (r *Router) SendPasswordChanged(ctx context.Context, identity, name string) error {
	n := r.pick(identity)
	if n == nil {
		return ErrDeliveryFailed
	}
	return n.SendPasswordChanged(ctx, identity, name)
}

// LogSender writes notifications to the log instead of a real channel.
// It stands in for an SMS gateway in development and for mail when SMTP
// is not configured.
type LogSender struct {
	logger  *slog.Logger
	channel string
}

// NewLogSender returns a sender logging under the given channel name.
func NewLogSender(logger *slog.Logger, channel string) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger, channel: channel}
}

func (s *LogSender) SendCode(_ context.Context, identity, code string, ttl time.Duration) error {
	s.logger.Info("notification_logged", "channel", s.channel, "kind", "code", "identity", identity, "code", code, "ttl", ttl)
	return nil
}

func (s *LogSender) SendWelcome(_ context.Context, identity, name string) error {
	s.logger.Info("notification_logged", "channel", s.channel, "kind", "welcome", "identity", identity, "name", name)
	return nil
}

func (s *LogSender) SendPasswordChanged(_ context.Context, identity, name string) error {
	s.logger.Info("notification_logged", "channel", s.channel, "kind", "password_changed", "identity", identity, "name", name)
	return nil
}
