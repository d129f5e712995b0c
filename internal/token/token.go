// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

// Package token issues and validates the API's credentials: short-lived
// JWT access tokens and opaque, rotated refresh tokens persisted by hash.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rapidride/verifyd/internal/models"
	"github.com/rapidride/verifyd/internal/repository"
)

var (
	// ErrInvalidToken covers malformed, forged, or expired access tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrRefreshNotFound means the refresh token is unknown, revoked, or
	// past its lifetime.
	ErrRefreshNotFound = errors.New("refresh token not found")
)

// Claims is the payload carried inside an access token.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Pair is what a client receives after authenticating.
type Pair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Manager signs access tokens and manages the refresh token lifecycle.
type Manager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	repo       *repository.Repository
	now        func() time.Time
}

// NewManager returns a Manager signing with secret. Refresh tokens are
// persisted through repo.
func NewManager(secret string, issuer string, accessTTL, refreshTTL time.Duration, repo *repository.Repository) *Manager {
	return &Manager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		repo:       repo,
		now:        time.Now,
	}
}

// IssuePair mints an access token for user and a fresh refresh token.
func (m *Manager) IssuePair(ctx context.Context, user *models.User) (Pair, error) {
	access, err := m.signAccess(user)
	if err != nil {
		return Pair{}, err
	}

	refresh, err := randomToken()
	if err != nil {
		return Pair{}, err
	}
	expiresAt := m.now().Add(m.refreshTTL)
	if err := m.repo.CreateRefreshToken(ctx, user.ID, hashToken(refresh), expiresAt); err != nil {
		return Pair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.accessTTL.Seconds()),
	}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair issued. A revoked or unknown token yields ErrRefreshNotFound.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (Pair, error) {
	hash := hashToken(refreshToken)
	row, err := m.repo.GetRefreshToken(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return Pair{}, ErrRefreshNotFound
	}
	if err != nil {
		return Pair{}, fmt.Errorf("load refresh token: %w", err)
	}

	user, err := m.repo.GetUserByID(ctx, row.UserID)
	if err != nil {
		return Pair{}, fmt.Errorf("load refresh token user: %w", err)
	}

	if err := m.repo.RevokeRefreshToken(ctx, hash); err != nil {
		return Pair{}, fmt.Errorf("revoke refresh token: %w", err)
	}
	return m.IssuePair(ctx, user)
}

// Revoke invalidates a single refresh token. Unknown tokens are ignored.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) error {
	return m.repo.RevokeRefreshToken(ctx, hashToken(refreshToken))
}

// RevokeAll invalidates every live refresh token of a user, e.g. after a
// password reset.
func (m *Manager) RevokeAll(ctx context.Context, userID int64) error {
	return m.repo.RevokeUserRefreshTokens(ctx, userID)
}

// ParseAccess validates an access token and returns its claims.
func (m *Manager) ParseAccess(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) signAccess(user *models.User) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: user.PublicID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.PublicID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
