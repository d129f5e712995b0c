// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

// Environment names recognized by the service.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	OTP      OTPConfig
	Auth     AuthConfig
	Session  SessionConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	Environment string // production, development
	MaxBodySize int    // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type RedisConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Addr     string // empty disables the Redis backend entirely
	Password string
	DB       int
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// OTPConfig controls code issuance and verification.
type OTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	CodeLength  int
	SignupTTL   time.Duration
	LoginTTL    time.Duration
	ResetTTL    time.Duration
	MaxAttempts int
	IssueLimit  int           // issuance attempts per identity per window
	IssueWindow time.Duration // rate gate window
}

type AuthConfig struct { //nolint:govet // fieldalignment not critical for config structs
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type SessionConfig struct { //nolint:govet // fieldalignment not critical
	CookieName string // flow session cookie name
	MaxAge     int    // absolute cookie lifetime in seconds
	HashKey    string // 32-byte hex string for HMAC signing
	BlockKey   string // 32-byte hex string for AES encryption (optional)
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			Environment: strings.ToLower(cmd.String("environment")),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Redis: RedisConfig{
			Addr:     cmd.String("redis-addr"),
			Password: cmd.String("redis-password"),
			DB:       int(cmd.Int("redis-db")),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		OTP: OTPConfig{
			CodeLength:  int(cmd.Int("otp-code-length")),
			SignupTTL:   cmd.Duration("otp-signup-ttl"),
			LoginTTL:    cmd.Duration("otp-login-ttl"),
			ResetTTL:    cmd.Duration("otp-reset-ttl"),
			MaxAttempts: int(cmd.Int("otp-max-attempts")),
			IssueLimit:  int(cmd.Int("otp-issue-limit")),
			IssueWindow: cmd.Duration("otp-issue-window"),
		},
		Auth: AuthConfig{
			JWTSecret:  cmd.String("jwt-secret"),
			AccessTTL:  cmd.Duration("jwt-access-ttl"),
			RefreshTTL: cmd.Duration("jwt-refresh-ttl"),
		},
		Session: SessionConfig{
			CookieName: cmd.String("session-cookie-name"),
			MaxAge:     int(cmd.Int("session-max-age")),
			HashKey:    cmd.String("session-hash-key"),
			BlockKey:   cmd.String("session-block-key"),
		},
	}

	if cfg.Server.Environment == "" {
		cfg.Server.Environment = EnvProduction
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	return cfg
}

// IsProduction reports whether the server runs with production semantics.
// Everything that is not explicitly development counts as production, so
// the raw OTP is never echoed in API responses by accident.
func (c *Config) IsProduction() bool {
	return c.Server.Environment != EnvDevelopment
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	if port == 80 {
		return fmt.Sprintf("http://%s", host)
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the service",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "environment",
			Value:   EnvProduction,
			Usage:   "Runtime environment (production, development)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ENVIRONMENT"), toml.TOML("server.environment", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/verifyd.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address (host:port), empty disables Redis",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_ADDR"), toml.TOML("redis.addr", configFile)),
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_PASSWORD"), toml.TOML("redis.password", configFile)),
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Value:   0,
			Usage:   "Redis database number",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_DB"), toml.TOML("redis.db", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP host for outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "From address for outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "RapidRide",
			Usage:   "Display name for outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		&cli.IntFlag{
			Name:    "otp-code-length",
			Value:   6,
			Usage:   "Number of digits in verification codes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_CODE_LENGTH"), toml.TOML("otp.code_length", configFile)),
		},
		&cli.DurationFlag{
			Name:    "otp-signup-ttl",
			Value:   10 * time.Minute,
			Usage:   "Lifetime of signup verification codes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_SIGNUP_TTL"), toml.TOML("otp.signup_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "otp-login-ttl",
			Value:   10 * time.Minute,
			Usage:   "Lifetime of login verification codes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_LOGIN_TTL"), toml.TOML("otp.login_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "otp-reset-ttl",
			Value:   5 * time.Minute,
			Usage:   "Lifetime of password reset codes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_RESET_TTL"), toml.TOML("otp.reset_ttl", configFile)),
		},
		&cli.IntFlag{
			Name:    "otp-max-attempts",
			Value:   5,
			Usage:   "Wrong submissions allowed before a code is discarded",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_MAX_ATTEMPTS"), toml.TOML("otp.max_attempts", configFile)),
		},
		&cli.IntFlag{
			Name:    "otp-issue-limit",
			Value:   5,
			Usage:   "Codes issued per identity per window",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_ISSUE_LIMIT"), toml.TOML("otp.issue_limit", configFile)),
		},
		&cli.DurationFlag{
			Name:    "otp-issue-window",
			Value:   15 * time.Minute,
			Usage:   "Rate gate window for code issuance",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_ISSUE_WINDOW"), toml.TOML("otp.issue_window", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "HMAC secret for access tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_SECRET"), toml.TOML("auth.jwt_secret", configFile)),
		},
		&cli.DurationFlag{
			Name:    "jwt-access-ttl",
			Value:   15 * time.Minute,
			Usage:   "Access token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_ACCESS_TTL"), toml.TOML("auth.access_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "jwt-refresh-ttl",
			Value:   30 * 24 * time.Hour,
			Usage:   "Refresh token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_REFRESH_TTL"), toml.TOML("auth.refresh_ttl", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-cookie-name",
			Value:   "_verify_session",
			Usage:   "Flow session cookie name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_COOKIE_NAME"), toml.TOML("session.cookie_name", configFile)),
		},
		&cli.IntFlag{
			Name:    "session-max-age",
			Value:   600, // 10 minutes, absolute
			Usage:   "Flow session cookie lifetime in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_MAX_AGE"), toml.TOML("session.max_age", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-hash-key",
			Usage:   "Session hash key (32-byte hex, auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_HASH_KEY"), toml.TOML("session.hash_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-block-key",
			Usage:   "Session block key for encryption (32-byte hex, optional)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_BLOCK_KEY"), toml.TOML("session.block_key", configFile)),
		},
	}
}
