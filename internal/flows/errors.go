// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

// Package flows implements the signup, login, and password-reset state
// machines on top of the verification code engine.
package flows

import "errors"

var (
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrNoSession          = errors.New("no pending flow session")
	ErrCodeInvalid        = errors.New("verification code invalid")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrCodeNotFound       = errors.New("no verification code on record")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrValidation         = errors.New("request validation failed")
	ErrWeakPassword       = errors.New("password does not meet requirements")
)
