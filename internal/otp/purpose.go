// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

// Package otp implements the verification code engine: generation,
// storage with interchangeable backends, and single-use verification.
package otp

import "fmt"

// Purpose identifies the flow a code was issued for. Codes never verify
// across purposes; the purpose is part of the storage key.
type Purpose string

const (
	PurposeSignup        Purpose = "signup"
	PurposeLogin         Purpose = "login"         // password-first login, OTP second
	PurposePhoneLogin    Purpose = "phone_login"   // legacy flow, OTP alone on a phone identity
	PurposePasswordReset Purpose = "password_reset"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeSignup, PurposeLogin, PurposePhoneLogin, PurposePasswordReset:
		return true
	}
	return false
}

func (p Purpose) String() string {
	return string(p)
}

// Key builds the composite storage key for an identity under this purpose.
func (p Purpose) Key(identity string) string {
	return fmt.Sprintf("%s:%s", p, identity)
}
