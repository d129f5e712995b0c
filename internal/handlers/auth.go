// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rapidride/verifyd/internal/flows"
	"github.com/rapidride/verifyd/internal/i18n"
	"github.com/rapidride/verifyd/internal/models"
	"github.com/rapidride/verifyd/internal/session"
)

type authResponse struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message"`
	Token        string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
	ExpiresIn    int64          `json:"expiresIn"`
	User         models.Summary `json:"user"`
}

func newAuthResponse(c echo.Context, messageID string, result *flows.AuthResult) authResponse {
	return authResponse{
		Success:      true,
		Message:      i18n.T(c.Request().Context(), messageID),
		Token:        result.Pair.AccessToken,
		RefreshToken: result.Pair.RefreshToken,
		ExpiresIn:    result.Pair.ExpiresIn,
		User:         result.User.Summary(),
	}
}

// SignupSendOTP starts the signup flow: validate details, stash them,
// mail the code.
func (h *Handlers) SignupSendOTP(c echo.Context) error {
	var req struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Phone           string `json:"phone"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := bind(c, &req); err != nil {
		return guardError(c, err, "error_signup_session_missing")
	}

	code, err := h.signup.Initiate(c.Request().Context(), flows.SignupParams{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return flowError(c, err, "error_signup_session_missing")
	}

	if err := h.setFlowCookie(c, session.FlowSignup, normalizedEmail(req.Email)); err != nil {
		return flowError(c, err, "error_signup_session_missing")
	}
	return h.sent(c, code)
}

// SignupVerifyComplete verifies the signup code and creates the account.
func (h *Handlers) SignupVerifyComplete(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := bind(c, &req); err != nil {
		return guardError(c, err, "error_signup_session_missing")
	}

	email := normalizedEmail(req.Email)
	if err := h.requireFlowCookie(c, session.FlowSignup, email); err != nil {
		return guardError(c, err, "error_signup_session_missing")
	}

	result, err := h.signup.Complete(c.Request().Context(), email, req.OTP)
	if err != nil {
		return flowError(c, err, "error_signup_session_missing")
	}

	h.sessions.Clear(c.Response())
	return c.JSON(http.StatusCreated, newAuthResponse(c, "message_signup_complete", result))
}

// SignupResendOTP replaces the outstanding signup code.
func (h *Handlers) SignupResendOTP(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := bind(c, &req); err != nil {
		return guardError(c, err, "error_signup_session_missing")
	}

	email := normalizedEmail(req.Email)
	if err := h.requireFlowCookie(c, session.FlowSignup, email); err != nil {
		return guardError(c, err, "error_signup_session_missing")
	}

	code, err := h.signup.Resend(c.Request().Context(), email)
	if err != nil {
		return flowError(c, err, "error_signup_session_missing")
	}

	if err := h.setFlowCookie(c, session.FlowSignup, email); err != nil {
		return flowError(c, err, "error_signup_session_missing")
	}
	return h.sent(c, code)
}

// LoginPassword checks credentials and mails the login code.
func (h *Handlers) LoginPassword(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := bind(c, &req); err != nil {
		return guardError(c, err, "error_login_session_missing")
	}

	identity := req.Email
	if identity == "" {
		identity = req.Phone
	}

	email, code, err := h.login.Initiate(c.Request().Context(), identity, req.Password)
	if err != nil {
		return flowError(c, err, "error_login_session_missing")
	}

	if err := h.setFlowCookie(c, session.FlowLogin, email); err != nil {
		return flowError(c, err, "error_login_session_missing")
	}
	return h.sent(c, code)
}

// LoginVerify verifies the login code and issues the session tokens.
func (h *Handlers) LoginVerify(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := bind(c, &req); err != nil {
		return guardError(c, err, "error_login_session_missing")
	}

	email := normalizedEmail(req.Email)
	if err := h.requireFlowCookie(c, session.FlowLogin, email); err != nil {
		return guardError(c, err, "error_login_session_missing")
	}

	result, err := h.login.Complete(c.Request().Context(), email, req.OTP)
	if err != nil {
		return flowError(c, err, "error_login_session_missing")
	}

	h.sessions.Clear(c.Response())
	return c.JSON(http.StatusOK, newAuthResponse(c, "message_login_complete", result))
}

// PhoneLoginSendOTP issues a code to a phone-registered account.
func (h *Handlers) PhoneLoginSendOTP(c echo.Context) error {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := bind(c, &req); err != nil {
		return guardError(c, err, "error_login_session_missing")
	}

	code, err := h.login.InitiatePhone(c.Request().Context(), req.Phone)
	if err != nil {
		return flowError(c, err, "error_login_session_missing")
	}

	if err := h.setFlowCookie(c, session.FlowLogin, req.Phone); err != nil {
		return flowError(c, err, "error_login_session_missing")
	}
	return h.sent(c, code)
}

// PhoneLoginVerify verifies the phone code and issues the session tokens.
func (h *Handlers) PhoneLoginVerify(c echo.Context) error {
	var req struct {
		Phone string `json:"phone"`
		OTP   string `json:"otp"`
	}
	if err := bind(c, &req); err != nil {
		return guardError(c, err, "error_login_session_missing")
	}

	if err := h.requireFlowCookie(c, session.FlowLogin, req.Phone); err != nil {
		return guardError(c, err, "error_login_session_missing")
	}

	result, err := h.login.CompletePhone(c.Request().Context(), req.Phone, req.OTP)
	if err != nil {
		return flowError(c, err, "error_login_session_missing")
	}

	h.sessions.Clear(c.Response())
	return c.JSON(http.StatusOK, newAuthResponse(c, "message_login_complete", result))
}

// PasswordResetSendOTP mails a reset code to a registered account.
func (h *Handlers) PasswordResetSendOTP(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := bind(c, &req); err != nil {
		return guardError(c, err, "error_reset_session_missing")
	}

	code, err := h.reset.Initiate(c.Request().Context(), req.Email)
	if err != nil {
		return flowError(c, err, "error_reset_session_missing")
	}

	if err := h.setFlowCookie(c, session.FlowReset, normalizedEmail(req.Email)); err != nil {
		return flowError(c, err, "error_reset_session_missing")
	}
	return h.sent(c, code)
}

// PasswordResetComplete verifies the reset code and sets the new password.
func (h *Handlers) PasswordResetComplete(c echo.Context) error {
	var req struct {
		Email       string `json:"email"`
		OTP         string `json:"otp"`
		NewPassword string `json:"newPassword"`
	}
	if err := bind(c, &req); err != nil {
		return guardError(c, err, "error_reset_session_missing")
	}

	email := normalizedEmail(req.Email)
	if err := h.requireFlowCookie(c, session.FlowReset, email); err != nil {
		return guardError(c, err, "error_reset_session_missing")
	}

	if err := h.reset.Complete(c.Request().Context(), email, req.OTP, req.NewPassword); err != nil {
		return flowError(c, err, "error_reset_session_missing")
	}

	h.sessions.Clear(c.Response())
	return c.JSON(http.StatusOK, okResponse{
		Success: true,
		Message: i18n.T(c.Request().Context(), "message_password_reset"),
	})
}

// RefreshToken rotates a refresh token into a fresh pair.
func (h *Handlers) RefreshToken(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := bind(c, &req); err != nil {
		return guardError(c, err, "error_login_session_missing")
	}
	if req.RefreshToken == "" {
		return fail(c, http.StatusUnauthorized, CodeInvalidRefreshToken, "error_invalid_refresh_token")
	}

	pair, err := h.tokens.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return flowError(c, err, "error_login_session_missing")
	}

	return c.JSON(http.StatusOK, struct {
		Success      bool   `json:"success"`
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    int64  `json:"expiresIn"`
	}{true, pair.AccessToken, pair.RefreshToken, pair.ExpiresIn})
}
