// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rapidride/verifyd/internal/flows"
	"github.com/rapidride/verifyd/internal/i18n"
)

// Request-guard sentinels. Guards never write the response themselves;
// handlers turn these into the single JSON answer via guardError, so a
// rejected request cannot fall through into the happy path.
var (
	errMalformedBody    = errors.New("malformed request body")
	errNoFlowSession    = errors.New("no flow session")
	errIdentityMismatch = errors.New("identity does not match flow session")
)

// bind decodes the JSON body.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errMalformedBody
	}
	return nil
}

// requireFlowCookie checks that the browser presenting this request is
// the one that started the flow for the submitted identity.
func (h *Handlers) requireFlowCookie(c echo.Context, flow, identity string) error {
	s, err := h.sessions.Get(c.Request())
	if err != nil {
		return errNoFlowSession
	}
	if s.Flow != flow {
		return errNoFlowSession
	}
	if s.Identity != identity {
		return errIdentityMismatch
	}
	return nil
}

// setFlowCookie starts or refreshes the browser's flow binding.
func (h *Handlers) setFlowCookie(c echo.Context, flow, identity string) error {
	if err := h.sessions.Set(c.Response(), identity, flow); err != nil {
		return fmt.Errorf("set flow cookie: %w", err)
	}
	return nil
}

// okResponse is the common success envelope.
type okResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OTP     string `json:"otp,omitempty"`
}

// sent answers an initiate/resend step, echoing the raw code only
// outside production.
func (h *Handlers) sent(c echo.Context, code string) error {
	resp := okResponse{
		Success: true,
		Message: i18n.T(c.Request().Context(), "message_otp_sent"),
	}
	if h.echoCode() {
		resp.OTP = code
	}
	return c.JSON(http.StatusOK, resp)
}

// normalizedEmail trims and lowercases a submitted email.
func normalizedEmail(email string) string {
	return flows.NormalizeEmail(email)
}
