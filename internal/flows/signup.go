// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/rapidride/verifyd/internal/models"
	"github.com/rapidride/verifyd/internal/notify"
	"github.com/rapidride/verifyd/internal/otp"
	"github.com/rapidride/verifyd/internal/repository"
	"github.com/rapidride/verifyd/internal/token"
)

// Config carries the collaborators every flow state machine composes.
type Config struct {
	Engine   *otp.Engine
	Repo     *repository.Repository
	Pending  PendingStore
	Notifier notify.Notifier
	Tokens   *token.Manager
	Logger   *slog.Logger

	// StrictDelivery makes a failed code delivery fail the initiating
	// step. Off, the failure is logged and the flow continues, which is
	// what development without an SMTP server wants.
	StrictDelivery bool

	Validator *PasswordValidator
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *Config) validator() *PasswordValidator {
	if c.Validator == nil {
		return DefaultPasswordValidator()
	}
	return c.Validator
}

// deliverCode sends a freshly issued code, honoring StrictDelivery.
func (c *Config) deliverCode(ctx context.Context, purpose otp.Purpose, identity, code string) error {
	err := c.Notifier.SendCode(ctx, identity, code, c.Engine.TTL(purpose))
	if err == nil {
		return nil
	}
	if c.StrictDelivery {
		return err
	}
	c.logger().Warn("code_delivery_failed", "purpose", purpose, "identity", identity, "error", err)
	return nil
}

// AuthResult is what a completed flow hands back to the transport layer.
type AuthResult struct {
	User *models.User
	Pair token.Pair
}

// Signup drives the two-step account creation flow: collect details and
// send a code, then verify the code and create the durable account.
type Signup struct {
	cfg Config
}

// NewSignup builds the signup state machine.
func NewSignup(cfg Config) *Signup {
	return &Signup{cfg: cfg}
}

// SignupParams is the payload of the first signup step.
type SignupParams struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

// NormalizeEmail lowercases and trims an email identity so the same
// mailbox always maps to the same storage key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Initiate validates the signup details, stashes them as pending state,
// and issues a verification code to the email. The plaintext code is
// returned so the transport layer can echo it outside production.
func (s *Signup) Initiate(ctx context.Context, params SignupParams) (string, error) {
	params.Email = NormalizeEmail(params.Email)
	if err := s.validate(params); err != nil {
		return "", err
	}

	exists, err := s.cfg.Repo.UserExists(ctx, params.Email, params.Phone)
	if err != nil {
		return "", fmt.Errorf("check existing account: %w", err)
	}
	if exists {
		return "", ErrAccountExists
	}

	code, err := s.cfg.Engine.Issue(ctx, otp.PurposeSignup, params.Email)
	if err != nil {
		return "", err
	}

	pending := PendingSignup{
		Name:     params.Name,
		Email:    params.Email,
		Phone:    params.Phone,
		Password: params.Password,
	}
	ttl := s.cfg.Engine.TTL(otp.PurposeSignup)
	if err := s.cfg.Pending.Put(ctx, kindSignup, params.Email, pending, ttl); err != nil {
		return "", fmt.Errorf("stash pending signup: %w", err)
	}

	if err := s.cfg.deliverCode(ctx, otp.PurposeSignup, params.Email, code); err != nil {
		return "", err
	}

	s.cfg.logger().Info("signup_initiated", "email", params.Email)
	return code, nil
}

// Complete verifies the code and creates the account. The password is
// hashed here, at the moment the durable row is written.
func (s *Signup) Complete(ctx context.Context, email, code string) (*AuthResult, error) {
	email = NormalizeEmail(email)

	var pending PendingSignup
	if err := s.cfg.Pending.Get(ctx, kindSignup, email, &pending); err != nil {
		if errors.Is(err, ErrPendingNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load pending signup: %w", err)
	}

	result, err := s.cfg.Engine.Verify(ctx, otp.PurposeSignup, email, code)
	if err != nil {
		return nil, err
	}
	switch result {
	case otp.ResultInvalid:
		return nil, ErrCodeInvalid
	case otp.ResultExpired:
		// The flow has to restart from the top.
		_ = s.cfg.Pending.Delete(ctx, kindSignup, email)
		return nil, ErrCodeExpired
	case otp.ResultNotFound:
		return nil, ErrCodeNotFound
	}

	hash, err := HashPassword(pending.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         pending.Name,
		Email:        pending.Email,
		Phone:        models.NullString(pending.Phone),
		PasswordHash: hash,
		IsVerified:   true,
	}
	if err := s.cfg.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			_ = s.cfg.Pending.Delete(ctx, kindSignup, email)
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	_ = s.cfg.Pending.Delete(ctx, kindSignup, email)

	pair, err := s.cfg.Tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	// Best effort: a lost welcome mail must not undo a created account.
	if err := s.cfg.Notifier.SendWelcome(ctx, user.Email, user.Name); err != nil {
		s.cfg.logger().Warn("welcome_delivery_failed", "email", user.Email, "error", err)
	}

	s.cfg.logger().Info("signup_completed", "user_id", user.ID, "email", user.Email)
	return &AuthResult{User: user, Pair: pair}, nil
}

// Resend replaces the outstanding signup code and refreshes the pending
// payload's lifetime.
func (s *Signup) Resend(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)

	var pending PendingSignup
	if err := s.cfg.Pending.Get(ctx, kindSignup, email, &pending); err != nil {
		if errors.Is(err, ErrPendingNotFound) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("load pending signup: %w", err)
	}

	code, err := s.cfg.Engine.Reissue(ctx, otp.PurposeSignup, email)
	if err != nil {
		return "", err
	}

	ttl := s.cfg.Engine.TTL(otp.PurposeSignup)
	if err := s.cfg.Pending.Put(ctx, kindSignup, email, pending, ttl); err != nil {
		return "", fmt.Errorf("refresh pending signup: %w", err)
	}

	if err := s.cfg.deliverCode(ctx, otp.PurposeSignup, email, code); err != nil {
		return "", err
	}

	s.cfg.logger().Info("signup_code_resent", "email", email)
	return code, nil
}

func (s *Signup) validate(params SignupParams) error {
	if params.Name == "" || params.Email == "" || params.Password == "" {
		return fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return ErrInvalidEmail
	}
	if params.ConfirmPassword != "" && params.ConfirmPassword != params.Password {
		return &PasswordValidationError{Errors: []ValidationError{{
			Code:    "confirm_mismatch",
			Message: "Passwords do not match.",
		}}}
	}
	validation := s.cfg.validator().Validate(params.Password, params.Email, params.Name)
	if !validation.Valid {
		return &PasswordValidationError{Errors: validation.Errors}
	}
	return nil
}
