// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

// Package handlers exposes the verification flows as a JSON API.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rapidride/verifyd/internal/config"
	"github.com/rapidride/verifyd/internal/flows"
	"github.com/rapidride/verifyd/internal/session"
	"github.com/rapidride/verifyd/internal/token"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	signup   *flows.Signup
	login    *flows.Login
	reset    *flows.Reset
	tokens   *token.Manager
	sessions *session.Codec
	cfg      *config.Config
}

// New creates a new Handlers instance.
func New(signup *flows.Signup, login *flows.Login, reset *flows.Reset, tokens *token.Manager, sessions *session.Codec, cfg *config.Config) *Handlers {
	return &Handlers{
		signup:   signup,
		login:    login,
		reset:    reset,
		tokens:   tokens,
		sessions: sessions,
		cfg:      cfg,
	}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// echoCode reports whether raw codes may appear in responses. Anything
// that is not explicitly a development environment stays silent.
func (h *Handlers) echoCode() bool {
	return !h.cfg.IsProduction()
}
