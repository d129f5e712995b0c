// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"time"
)

// Roles a user account can hold on the platform.
const (
	RoleRider  = "rider"
	RoleDriver = "driver"
)

// User is a durable platform account. Accounts are only materialized after
// the signup OTP has been verified, so IsVerified is set on creation.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID           int64          `db:"id" json:"-"`
	PublicID     string         `db:"public_id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Email        string         `db:"email" json:"email"`
	Phone        sql.NullString `db:"phone" json:"-"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Role         string         `db:"role" json:"role"`
	IsVerified   bool           `db:"is_verified" json:"is_verified"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// NullString wraps a possibly-empty string for a nullable column.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Summary is the caller-facing projection returned with token pairs.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}

// Summary returns the public projection of the user.
func (u *User) Summary() Summary {
	s := Summary{
		ID:    u.PublicID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
	if u.Phone.Valid {
		s.Phone = u.Phone.String
	}
	return s
}
