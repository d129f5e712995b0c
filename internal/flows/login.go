// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package flows

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/rapidride/verifyd/internal/models"
	"github.com/rapidride/verifyd/internal/notify"
	"github.com/rapidride/verifyd/internal/otp"
	"github.com/rapidride/verifyd/internal/repository"
)

// Login drives the two sign-in variants. Password-first: credentials are
// checked, then an emailed code confirms the session. Legacy phone: the
// code alone signs in a phone-registered account.
type Login struct {
	cfg Config
}

// NewLogin builds the login state machine.
func NewLogin(cfg Config) *Login {
	return &Login{cfg: cfg}
}

// Initiate checks the password and issues a login code to the account's
// email. The identity may be the account email or its phone number; the
// code is always keyed and delivered by email. A probe against an
// unknown identity costs a bcrypt comparison like any other, and always
// answers ErrInvalidCredentials.
func (l *Login) Initiate(ctx context.Context, identity, password string) (email, code string, err error) {
	user, err := l.lookup(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			l.cfg.logger().Warn("login_failed", "identity", identity, "reason", "user_not_found")
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}

	if !CheckPassword(user.PasswordHash, password) {
		l.cfg.logger().Warn("login_failed", "identity", identity, "reason", "invalid_password")
		return "", "", ErrInvalidCredentials
	}

	code, err = l.cfg.Engine.Issue(ctx, otp.PurposeLogin, user.Email)
	if err != nil {
		return "", "", err
	}
	if err := l.cfg.deliverCode(ctx, otp.PurposeLogin, user.Email, code); err != nil {
		return "", "", err
	}

	l.cfg.logger().Info("login_initiated", "user_id", user.ID, "email", user.Email)
	return user.Email, code, nil
}

// Complete verifies the login code and issues the session token pair.
func (l *Login) Complete(ctx context.Context, identity, code string) (*AuthResult, error) {
	user, err := l.lookup(ctx, identity)
	if err != nil {
		return nil, err
	}
	return l.finish(ctx, user, otp.PurposeLogin, user.Email, code)
}

// InitiatePhone issues a phone-login code. No password is involved; the
// account must already exist for the phone number.
func (l *Login) InitiatePhone(ctx context.Context, phone string) (string, error) {
	user, err := l.cfg.Repo.GetUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("look up phone account: %w", err)
	}

	code, err := l.cfg.Engine.Issue(ctx, otp.PurposePhoneLogin, phone)
	if err != nil {
		return "", err
	}
	if err := l.cfg.deliverCode(ctx, otp.PurposePhoneLogin, phone, code); err != nil {
		return "", err
	}

	l.cfg.logger().Info("phone_login_initiated", "user_id", user.ID)
	return code, nil
}

// CompletePhone verifies the phone-login code and issues the session.
func (l *Login) CompletePhone(ctx context.Context, phone, code string) (*AuthResult, error) {
	user, err := l.cfg.Repo.GetUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("look up phone account: %w", err)
	}
	return l.finish(ctx, user, otp.PurposePhoneLogin, phone, code)
}

func (l *Login) finish(ctx context.Context, user *models.User, purpose otp.Purpose, identity, code string) (*AuthResult, error) {
	result, err := l.cfg.Engine.Verify(ctx, purpose, identity, code)
	if err != nil {
		return nil, err
	}
	switch result {
	case otp.ResultInvalid:
		return nil, ErrCodeInvalid
	case otp.ResultExpired:
		return nil, ErrCodeExpired
	case otp.ResultNotFound:
		return nil, ErrCodeNotFound
	}

	pair, err := l.cfg.Tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	l.cfg.logger().Info("login_completed", "user_id", user.ID, "purpose", purpose)
	return &AuthResult{User: user, Pair: pair}, nil
}

func (l *Login) lookup(ctx context.Context, identity string) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	if notify.IsEmail(identity) {
		user, err = l.cfg.Repo.GetUserByEmail(ctx, NormalizeEmail(identity))
	} else {
		user, err = l.cfg.Repo.GetUserByPhone(ctx, identity)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("look up account: %w", err)
	}
	return user, nil
}
