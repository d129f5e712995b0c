// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidride/verifyd/internal/config"
	"github.com/rapidride/verifyd/internal/flows"
	"github.com/rapidride/verifyd/internal/handlers"
	"github.com/rapidride/verifyd/internal/notify"
	"github.com/rapidride/verifyd/internal/otp"
	"github.com/rapidride/verifyd/internal/session"
	"github.com/rapidride/verifyd/internal/testutil"
	"github.com/rapidride/verifyd/internal/token"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.MaxBodySize = 1
	cfg.OTP.CodeLength = 6
	cfg.OTP.SignupTTL = 10 * time.Minute
	cfg.OTP.LoginTTL = 10 * time.Minute
	cfg.OTP.ResetTTL = 5 * time.Minute
	cfg.OTP.MaxAttempts = 5
	cfg.OTP.IssueLimit = 5
	cfg.OTP.IssueWindow = 15 * time.Minute
	return cfg
}

func TestBuildStoresWithoutRedis(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, gate, pending := buildStores(ctx, testConfig(), repo, nil)

	require.IsType(t, &otp.SQLStore{}, store)
	require.NotNil(t, gate)
	require.IsType(t, &flows.MemoryPending{}, pending)

	// Codes put through the store come back hashed out of SQLite.
	rec := otp.Record{Secret: "123456", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.Put(ctx, otp.PurposeSignup, "rider@example.com", rec))

	got, err := store.Get(ctx, otp.PurposeSignup, "rider@example.com")
	require.NoError(t, err)
	assert.True(t, got.Hashed)
}

func TestBuildStoresWithRedis(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	rdb, mr := testutil.NewTestRedis(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, gate, pending := buildStores(ctx, testConfig(), repo, rdb)

	require.IsType(t, &otp.FallbackStore{}, store)
	require.NotNil(t, gate)
	require.IsType(t, &flows.RedisPending{}, pending)

	rec := otp.Record{Secret: "123456", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.Put(ctx, otp.PurposeLogin, "rider@example.com", rec))
	assert.True(t, mr.Exists("otp:login:rider@example.com"))
}

func TestIssuanceSurvivesRedisOutage(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	rdb, mr := testutil.NewTestRedis(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	store, gate, _ := buildStores(ctx, cfg, repo, rdb)
	engine := otp.NewEngine(otp.NewGenerator(cfg.OTP.CodeLength), store, slog.Default(), otp.WithGate(gate))

	mr.Close()

	// Store falls back to memory and the gate fails open, so the code
	// round-trips as if Redis were healthy.
	code, err := engine.Issue(ctx, otp.PurposeSignup, "rider@example.com")
	require.NoError(t, err)

	res, err := engine.Verify(ctx, otp.PurposeSignup, "rider@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, otp.ResultConsumed, res)
}

func TestBuildNotifierWithoutSMTP(t *testing.T) {
	n := buildNotifier(testConfig())
	require.IsType(t, &notify.Router{}, n)

	// Without SMTP the router logs instead of sending.
	err := n.SendCode(context.Background(), "rider@example.com", "123456", time.Minute)
	assert.NoError(t, err)
}

func TestSetupRoutes(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	cfg := testConfig()

	engine := otp.NewEngine(otp.NewGenerator(6), otp.NewMemoryStore(), slog.Default())
	tokens := token.NewManager("test-secret-32-bytes-long-enough", "test", time.Minute, time.Hour, repo)
	sessions, err := session.NewCodec(&config.SessionConfig{CookieName: "_verify_session", MaxAge: 600}, false)
	require.NoError(t, err)

	flowCfg := flows.Config{
		Engine:   engine,
		Repo:     repo,
		Pending:  flows.NewMemoryPending(),
		Notifier: notify.NewRouter(notify.NewLogSender(slog.Default(), "email"), notify.NewLogSender(slog.Default(), "sms")),
		Tokens:   tokens,
	}
	h := handlers.New(flows.NewSignup(flowCfg), flows.NewLogin(flowCfg), flows.NewReset(flowCfg), tokens, sessions, cfg)

	e := echo.New()
	setupRoutes(e, h)

	registered := make(map[string]bool)
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	want := []string{
		"GET /health",
		"POST /api/auth/signup/send-otp",
		"POST /api/auth/signup/verify-complete",
		"POST /api/auth/signup/resend-otp",
		"POST /api/auth/login/password",
		"POST /api/auth/login/verify",
		"POST /api/auth/login/phone/send-otp",
		"POST /api/auth/login/phone/verify",
		"POST /api/auth/password/reset-otp",
		"POST /api/auth/password/reset-complete",
		"POST /api/auth/token/refresh",
	}
	for _, route := range want {
		assert.True(t, registered[route], "missing route %s", route)
	}
}
