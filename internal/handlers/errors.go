// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rapidride/verifyd/internal/flows"
	"github.com/rapidride/verifyd/internal/i18n"
	"github.com/rapidride/verifyd/internal/notify"
	"github.com/rapidride/verifyd/internal/rate"
	"github.com/rapidride/verifyd/internal/token"
)

// Stable machine-checkable error codes. Clients branch on these, the
// localized message is for humans.
const (
	CodeInvalidRequest      = "invalid_request"
	CodeValidation          = "validation_failed"
	CodeAccountExists       = "account_exists"
	CodeInvalidCredentials  = "invalid_credentials"
	CodeUserNotFound        = "user_not_found"
	CodeSessionMissing      = "session_missing"
	CodeEmailMismatch       = "email_mismatch"
	CodeInvalidOTP          = "invalid_otp"
	CodeOTPExpired          = "otp_expired"
	CodeOTPNotFound         = "otp_not_found"
	CodeTooManyRequests     = "too_many_requests"
	CodeDeliveryFailed      = "delivery_failed"
	CodeInvalidRefreshToken = "invalid_refresh_token"
	CodeInternal            = "internal_error"
)

type errorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func fail(c echo.Context, status int, code, messageID string) error {
	return c.JSON(status, errorResponse{
		Error:   code,
		Message: i18n.T(c.Request().Context(), messageID),
	})
}

// guardError maps a failed request guard to its HTTP shape. The session
// message differs per flow, like in flowError.
func guardError(c echo.Context, err error, sessionMessageID string) error {
	switch {
	case errors.Is(err, errMalformedBody):
		return fail(c, http.StatusBadRequest, CodeInvalidRequest, "error_invalid_request")
	case errors.Is(err, errIdentityMismatch):
		return fail(c, http.StatusBadRequest, CodeEmailMismatch, "error_email_mismatch")
	case errors.Is(err, errNoFlowSession):
		return fail(c, http.StatusBadRequest, CodeSessionMissing, sessionMessageID)
	default:
		c.Logger().Error(err)
		return fail(c, http.StatusInternalServerError, CodeInternal, "error_internal")
	}
}

// flowError maps a flow sentinel to its HTTP shape. sessionMessageID
// localizes the no-session case, which reads differently per flow.
func flowError(c echo.Context, err error, sessionMessageID string) error {
	var pwErr *flows.PasswordValidationError
	if errors.As(err, &pwErr) {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error:   CodeValidation,
			Message: pwErr.Error(),
			Details: pwErr.Messages(),
		})
	}

	switch {
	case errors.Is(err, flows.ErrValidation), errors.Is(err, flows.ErrInvalidEmail):
		return fail(c, http.StatusBadRequest, CodeValidation, "error_validation")
	case errors.Is(err, flows.ErrAccountExists):
		return fail(c, http.StatusBadRequest, CodeAccountExists, "error_account_exists")
	case errors.Is(err, flows.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "error_invalid_credentials")
	case errors.Is(err, flows.ErrUserNotFound):
		return fail(c, http.StatusNotFound, CodeUserNotFound, "error_user_not_found")
	case errors.Is(err, flows.ErrNoSession):
		return fail(c, http.StatusBadRequest, CodeSessionMissing, sessionMessageID)
	case errors.Is(err, flows.ErrCodeInvalid):
		return fail(c, http.StatusBadRequest, CodeInvalidOTP, "error_invalid_otp")
	case errors.Is(err, flows.ErrCodeExpired):
		return fail(c, http.StatusBadRequest, CodeOTPExpired, "error_otp_expired")
	case errors.Is(err, flows.ErrCodeNotFound):
		return fail(c, http.StatusBadRequest, CodeOTPNotFound, "error_otp_not_found")
	case errors.Is(err, rate.ErrRateLimited):
		return fail(c, http.StatusTooManyRequests, CodeTooManyRequests, "error_too_many_requests")
	case errors.Is(err, notify.ErrDeliveryFailed):
		return fail(c, http.StatusBadGateway, CodeDeliveryFailed, "error_delivery_failed")
	case errors.Is(err, token.ErrRefreshNotFound):
		return fail(c, http.StatusUnauthorized, CodeInvalidRefreshToken, "error_invalid_refresh_token")
	default:
		c.Logger().Error(err)
		return fail(c, http.StatusInternalServerError, CodeInternal, "error_internal")
	}
}
