// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rapidride/verifyd/internal/models"
)

// CreateUser inserts a new user. A public UUID is assigned on insert.
// Returns ErrConflict when the email or phone is already taken.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.PublicID == "" {
		user.PublicID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleRider
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (public_id, name, email, phone, password_hash, role, is_verified)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.PublicID, user.Name, user.Email, user.Phone, user.PasswordHash, user.Role, user.IsVerified)
	if err != nil {
		return wrapError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves a user by internal ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by normalized email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByPhone retrieves a user by phone number.
func (r *Repository) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE phone = ?`, phone); err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// UserExists checks whether an account exists for the email or the
// (optional) phone number.
func (r *Repository) UserExists(ctx context.Context, email, phone string) (bool, error) {
	var count int64
	var err error
	if phone != "" {
		err = r.db.GetContext(ctx, &count,
			`SELECT count(*) FROM users WHERE email = ? OR phone = ?`, email, phone)
	} else {
		err = r.db.GetContext(ctx, &count,
			`SELECT count(*) FROM users WHERE email = ?`, email)
	}
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateUserPassword updates a user's password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
