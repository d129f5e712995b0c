// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

// Package notify delivers verification codes and account notices to an
// identity over the channel the identity implies: email addresses get
// mail, phone numbers get SMS.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrDeliveryFailed means the channel rejected the message.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// Notifier delivers messages for the verification flows. SendCode
// delivery failures are fatal to the flow step that requested them;
// SendWelcome and SendPasswordChanged are best-effort.
type Notifier interface {
	SendCode(ctx context.Context, identity, code string, ttl time.Duration) error
	SendWelcome(ctx context.Context, identity, name string) error
	SendPasswordChanged(ctx context.Context, identity, name string) error
}

// IsEmail reports whether an identity is an email address rather than a
// phone number. Identities are one or the other; flows validate shape
// before they reach the notifier.
func IsEmail(identity string) bool {
	return strings.Contains(identity, "@")
}
