// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package notify

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidride/verifyd/internal/config"
)

type recordingSender struct {
	codes    []string
	welcomes []string
}

func (r *recordingSender) SendCode(_ context.Context, identity, _ string, _ time.Duration) error {
	r.codes = append(r.codes, identity)
	return nil
}

func (r *recordingSender) SendWelcome(_ context.Context, identity, _ string) error {
	r.welcomes = append(r.welcomes, identity)
	return nil
}

func (r *recordingSender) SendPasswordChanged(context.Context, string, string) error {
	return nil
}

func TestIsEmail(t *testing.T) {
	t.Parallel()

	assert.True(t, IsEmail("a@b.com"))
	assert.False(t, IsEmail("+15550001111"))
}

func TestRouterPicksChannel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	email := &recordingSender{}
	sms := &recordingSender{}
	router := NewRouter(email, sms)

	require.NoError(t, router.SendCode(ctx, "a@b.com", "123456", time.Minute))
	require.NoError(t, router.SendCode(ctx, "+15550001111", "123456", time.Minute))

	assert.Equal(t, []string{"a@b.com"}, email.codes)
	assert.Equal(t, []string{"+15550001111"}, sms.codes)
}

func TestRouterMissingChannel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	router := NewRouter(&recordingSender{}, nil)

	err := router.SendCode(ctx, "+15550001111", "123456", time.Minute)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
}

func TestNewEmailSenderValidation(t *testing.T) {
	t.Parallel()

	_, err := NewEmailSender(&config.SMTPConfig{From: "noreply@rapidride.example"})
	assert.Error(t, err)

	_, err = NewEmailSender(&config.SMTPConfig{Host: "localhost"})
	assert.Error(t, err)

	sender, err := NewEmailSender(&config.SMTPConfig{Host: "localhost", From: "noreply@rapidride.example"})
	require.NoError(t, err)
	assert.NotNil(t, sender)
}

func TestLogSender(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := NewLogSender(slog.Default(), "sms")

	assert.NoError(t, sender.SendCode(ctx, "+15550001111", "123456", time.Minute))
	assert.NoError(t, sender.SendWelcome(ctx, "+15550001111", "Ada"))
	assert.NoError(t, sender.SendPasswordChanged(ctx, "+15550001111", "Ada"))
}
