// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package flows_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidride/verifyd/internal/flows"
	"github.com/rapidride/verifyd/internal/notify"
	"github.com/rapidride/verifyd/internal/otp"
	"github.com/rapidride/verifyd/internal/repository"
	"github.com/rapidride/verifyd/internal/testutil"
	"github.com/rapidride/verifyd/internal/token"
)

// fakeNotifier records deliveries and can be told to fail them.
type fakeNotifier struct {
	mu        sync.Mutex
	codes     map[string]string // identity -> last code
	welcomes  []string
	notices   []string
	failCodes bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{codes: make(map[string]string)}
}

func (f *fakeNotifier) SendCode(_ context.Context, identity, code string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCodes {
		return notify.ErrDeliveryFailed
	}
	f.codes[identity] = code
	return nil
}

func (f *fakeNotifier) SendWelcome(_ context.Context, identity, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcomes = append(f.welcomes, identity)
	return nil
}

func (f *fakeNotifier) SendPasswordChanged(_ context.Context, identity, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, identity)
	return nil
}

func (f *fakeNotifier) lastCode(identity string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[identity]
}

type fixtures struct {
	repo     *repository.Repository
	engine   *otp.Engine
	notifier *fakeNotifier
	tokens   *token.Manager
	cfg      flows.Config
}

func newFixtures(t *testing.T) *fixtures {
	t.Helper()

	_, repo := testutil.NewTestDB(t)
	engine := otp.NewEngine(otp.NewGenerator(6), otp.NewMemoryStore(), slog.Default(),
		otp.WithTTL(otp.PurposePasswordReset, 5*time.Minute),
	)
	notifier := newFakeNotifier()
	tokens := token.NewManager("test-secret-32-bytes-long-enough", "verifyd", 15*time.Minute, 720*time.Hour, repo)

	f := &fixtures{
		repo:     repo,
		engine:   engine,
		notifier: notifier,
		tokens:   tokens,
	}
	f.cfg = flows.Config{
		Engine:   engine,
		Repo:     repo,
		Pending:  flows.NewMemoryPending(),
		Notifier: notifier,
		Tokens:   tokens,
	}
	return f
}

func mustInitiateSignup(t *testing.T, signup *flows.Signup, email string) string {
	t.Helper()

	code, err := signup.Initiate(context.Background(), flows.SignupParams{
		Name:     "Ada",
		Email:    email,
		Password: "ride-safely",
	})
	require.NoError(t, err)
	require.Len(t, code, 6)
	return code
}

func requireFlowErr(t *testing.T, err, want error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, want), "got %v, want %v", err, want)
}
