// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/rapidride/verifyd/internal/config"
	"github.com/rapidride/verifyd/internal/database"
	"github.com/rapidride/verifyd/internal/flows"
	"github.com/rapidride/verifyd/internal/handlers"
	"github.com/rapidride/verifyd/internal/i18n"
	"github.com/rapidride/verifyd/internal/notify"
	"github.com/rapidride/verifyd/internal/otp"
	"github.com/rapidride/verifyd/internal/rate"
	"github.com/rapidride/verifyd/internal/repository"
	"github.com/rapidride/verifyd/internal/session"
	"github.com/rapidride/verifyd/internal/token"
)

const sweepInterval = time.Minute

// Run starts the verification service with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	if cfg.IsProduction() && cfg.Auth.JWTSecret == "" {
		return errors.New("jwt-secret is required in production")
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"environment", cfg.Server.Environment,
		"redis", cfg.Redis.Addr != "",
	)

	// Database (migrations run on open)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	repo := repository.New(db)

	// Background sweepers stop with this context.
	sweepCtx, stopSweepers := context.WithCancel(ctx)
	defer stopSweepers()

	go sweepRefreshTokens(sweepCtx, repo)

	// Redis is optional. When it is down at startup we still wire it in:
	// the fallback store absorbs the outage until it recovers.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if closeErr := rdb.Close(); closeErr != nil {
				slog.Error("failed to close redis", "error", closeErr)
			}
		}()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if pingErr := rdb.Ping(pingCtx).Err(); pingErr != nil {
			slog.Warn("redis_unreachable", "addr", cfg.Redis.Addr, "error", pingErr)
		}
		cancel()
	}

	store, gate, pending := buildStores(sweepCtx, cfg, repo, rdb)

	engine := otp.NewEngine(otp.NewGenerator(cfg.OTP.CodeLength), store, slog.Default(),
		otp.WithTTL(otp.PurposeSignup, cfg.OTP.SignupTTL),
		otp.WithTTL(otp.PurposeLogin, cfg.OTP.LoginTTL),
		otp.WithTTL(otp.PurposePhoneLogin, cfg.OTP.LoginTTL),
		otp.WithTTL(otp.PurposePasswordReset, cfg.OTP.ResetTTL),
		otp.WithGate(gate),
		otp.WithMaxAttempts(cfg.OTP.MaxAttempts),
	)

	tokens := token.NewManager(cfg.Auth.JWTSecret, cfg.Server.BaseURL, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, repo)

	secure := strings.HasPrefix(cfg.Server.BaseURL, "https://")
	sessions, err := session.NewCodec(&cfg.Session, secure)
	if err != nil {
		return fmt.Errorf("failed to build session codec: %w", err)
	}

	flowCfg := flows.Config{
		Engine:         engine,
		Repo:           repo,
		Pending:        pending,
		Notifier:       buildNotifier(cfg),
		Tokens:         tokens,
		Logger:         slog.Default(),
		StrictDelivery: cfg.IsProduction(),
	}

	h := handlers.New(
		flows.NewSignup(flowCfg),
		flows.NewLogin(flowCfg),
		flows.NewReset(flowCfg),
		tokens, sessions, cfg,
	)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, h)

	return startWithGracefulShutdown(e, cfg)
}

// buildStores assembles the code store, the issuance gate and the pending
// payload store. With Redis configured, codes live in Redis with an
// in-memory fallback for outages. Without Redis, codes go to SQLite so
// they survive restarts on a single node.
func buildStores(ctx context.Context, cfg *config.Config, repo *repository.Repository, rdb *redis.Client) (otp.Store, rate.Gate, flows.PendingStore) {
	if rdb != nil {
		fallback := otp.NewMemoryStore()
		fallback.StartSweeper(ctx, sweepInterval)

		store := otp.NewFallbackStore(otp.NewRedisStore(rdb), fallback, slog.Default())
		gate := rate.NewRedisGate(rdb, cfg.OTP.IssueLimit, cfg.OTP.IssueWindow)
		return store, gate, flows.NewRedisPending(rdb)
	}

	store := otp.NewSQLStore(repo)
	store.StartSweeper(ctx, sweepInterval)

	gate := rate.NewMemoryGate(cfg.OTP.IssueLimit, cfg.OTP.IssueWindow)
	gate.StartSweeper(ctx, sweepInterval)

	pending := flows.NewMemoryPending()
	pending.StartSweeper(ctx, sweepInterval)

	return store, gate, pending
}

// sweepRefreshTokens drops expired refresh token rows hourly.
func sweepRefreshTokens(ctx context.Context, repo *repository.Repository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repo.DeleteExpiredRefreshTokens(ctx, time.Now()); err != nil {
				slog.Warn("refresh_token_sweep_failed", "error", err)
			}
		}
	}
}

// buildNotifier routes codes to email via SMTP when configured. SMS has
// no gateway wired yet, so phone delivery goes to the log.
func buildNotifier(cfg *config.Config) notify.Notifier {
	sms := notify.NewLogSender(slog.Default(), "sms")

	if cfg.SMTP.Host == "" {
		slog.Warn("smtp_not_configured", "hint", "codes are written to the log")
		return notify.NewRouter(notify.NewLogSender(slog.Default(), "email"), sms)
	}

	email, err := notify.NewEmailSender(&cfg.SMTP)
	if err != nil {
		slog.Error("smtp_setup_failed", "error", err)
		return notify.NewRouter(notify.NewLogSender(slog.Default(), "email"), sms)
	}
	return notify.NewRouter(email, sms)
}

func setupRoutes(e *echo.Echo, h *handlers.Handlers) {
	e.GET("/health", h.Health)

	auth := e.Group("/api/auth")
	auth.POST("/signup/send-otp", h.SignupSendOTP)
	auth.POST("/signup/verify-complete", h.SignupVerifyComplete)
	auth.POST("/signup/resend-otp", h.SignupResendOTP)
	auth.POST("/login/password", h.LoginPassword)
	auth.POST("/login/verify", h.LoginVerify)
	auth.POST("/login/phone/send-otp", h.PhoneLoginSendOTP)
	auth.POST("/login/phone/verify", h.PhoneLoginVerify)
	auth.POST("/password/reset-otp", h.PasswordResetSendOTP)
	auth.POST("/password/reset-complete", h.PasswordResetComplete)
	auth.POST("/token/refresh", h.RefreshToken)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
