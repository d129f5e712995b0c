// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

// Package session binds a browser to an in-flight verification flow via
// a signed cookie. The cookie carries the identity the flow was started
// for; completion handlers require the submitted identity to match it.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/rapidride/verifyd/internal/config"
)

var (
	// ErrNoSession means no flow cookie is present or it failed to decode.
	ErrNoSession = errors.New("no flow session")

	// ErrSessionExpired means the cookie is authentic but past its
	// absolute lifetime.
	ErrSessionExpired = errors.New("flow session expired")
)

// Flow names carried in the cookie.
const (
	FlowSignup = "signup"
	FlowLogin  = "login"
	FlowReset  = "reset"
)

// FlowSession is the signed cookie payload.
type FlowSession struct {
	Identity string    `json:"identity"`
	Flow     string    `json:"flow"`
	IssuedAt time.Time `json:"issued_at"`
}

// Codec signs, verifies, and ages flow cookies.
type Codec struct {
	sc         *securecookie.SecureCookie
	cookieName string
	maxAge     time.Duration
	secure     bool
	now        func() time.Time
}

// NewCodec builds a codec from session config. Keys are hex strings; an
// empty hash key gets a random one, which is fine for development and
// single-instance deployments but invalidates cookies on restart.
func NewCodec(cfg *config.SessionConfig, secure bool) (*Codec, error) {
	hashKey, err := keyBytes(cfg.HashKey, 32)
	if err != nil {
		return nil, fmt.Errorf("session hash key: %w", err)
	}

	var blockKey []byte
	if cfg.BlockKey != "" {
		blockKey, err = keyBytes(cfg.BlockKey, 32)
		if err != nil {
			return nil, fmt.Errorf("session block key: %w", err)
		}
	}

	sc := securecookie.New(hashKey, blockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})

	return &Codec{
		sc:         sc,
		cookieName: cfg.CookieName,
		maxAge:     time.Duration(cfg.MaxAge) * time.Second,
		secure:     secure,
		now:        time.Now,
	}, nil
}

// Set writes the flow cookie for the given identity.
func (c *Codec) Set(w http.ResponseWriter, identity, flow string) error {
	s := FlowSession{Identity: identity, Flow: flow, IssuedAt: c.now()}
	encoded, err := c.sc.Encode(c.cookieName, s)
	if err != nil {
		return fmt.Errorf("encode flow session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Get reads and verifies the flow cookie. The lifetime is absolute from
// IssuedAt; resends refresh the cookie, not the deadline check here.
func (c *Codec) Get(r *http.Request) (FlowSession, error) {
	cookie, err := r.Cookie(c.cookieName)
	if err != nil {
		return FlowSession{}, ErrNoSession
	}

	var s FlowSession
	if err := c.sc.Decode(c.cookieName, cookie.Value, &s); err != nil {
		return FlowSession{}, ErrNoSession
	}
	if c.now().Sub(s.IssuedAt) > c.maxAge {
		return FlowSession{}, ErrSessionExpired
	}
	return s, nil
}

// Clear expires the flow cookie.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func keyBytes(hexKey string, want int) ([]byte, error) {
	if hexKey == "" {
		key := make([]byte, want)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		return key, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("not a hex string: %w", err)
	}
	if len(key) != want {
		return nil, fmt.Errorf("want %d bytes, got %d", want, len(key))
	}
	return key, nil
}
