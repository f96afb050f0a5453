// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	authsvc "github.com/vuportal/authportal/internal/services/auth"
	"github.com/vuportal/authportal/internal/services/otp"
	"github.com/vuportal/authportal/internal/services/session"
	"github.com/vuportal/authportal/internal/validation"
)

// AuthHandlers contains handlers for signup, verification, login and
// password reset.
type AuthHandlers struct {
	otp      *otp.Service
	auth     *authsvc.Service
	sessions *session.Manager
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(otpSvc *otp.Service, authSvc *authsvc.Service, sessions *session.Manager) *AuthHandlers {
	return &AuthHandlers{
		otp:      otpSvc,
		auth:     authSvc,
		sessions: sessions,
	}
}

// SignupRequest is the request body for starting a registration.
type SignupRequest struct {
	FullName string `json:"fullName" validate:"required,min=2,max=100"`
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Signup stages a registration and emails the verification code. The
// account is not created until the code is verified.
func (h *AuthHandlers) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	req.Email = normalizeEmail(req.Email)

	if issues := validation.Struct(req); issues != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "validation failed", "issues": issues})
	}

	if err := h.auth.CheckDomain(req.Email); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("only %s email addresses are allowed", h.auth.AllowedDomain()),
		})
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to process signup"})
	}

	err = h.otp.IssueSignup(c.Request().Context(), otp.SignupParams{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Password: hash,
	})
	switch {
	case errors.Is(err, otp.ErrEmailTaken):
		return c.JSON(http.StatusConflict, map[string]string{"error": "email already registered"})
	case errors.Is(err, otp.ErrUsernameTaken):
		return c.JSON(http.StatusConflict, map[string]string{"error": "username already taken"})
	case err != nil:
		slog.Error("failed to stage signup", "error", err, "email", req.Email)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to process signup"})
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"message": "Verification code sent. Please check your email.",
	})
}

// VerifyRequest is the request body for confirming a registration. Code
// accepts either the 6-digit code or the magic-link token.
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code"  validate:"required"`
}

// Verify consumes a verification code, promotes the pending registration
// to an account and signs the new user in.
func (h *AuthHandlers) Verify(c echo.Context) error {
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	req.Email = normalizeEmail(req.Email)

	if issues := validation.Struct(req); issues != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "validation failed", "issues": issues})
	}

	user, err := h.otp.Verify(c.Request().Context(), req.Email, req.Code)
	switch {
	case errors.Is(err, otp.ErrInvalidCode):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid or expired code"})
	case errors.Is(err, otp.ErrNoPendingSignup):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No pending registration found"})
	case err != nil:
		slog.Error("failed to verify code", "error", err, "email", req.Email)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to verify code"})
	}

	cookie, err := h.sessions.Create(user.ID, user.Username)
	if err != nil {
		slog.Error("failed to create session", "error", err, "user_id", user.ID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, map[string]any{
		"message": "Email verified successfully",
		"user":    user,
	})
}

// VerifyEmail consumes the magic-link token from the verification mail.
// The link carries only the token, so the pending email is resolved from
// the stored row.
func (h *AuthHandlers) VerifyEmail(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "token is required"})
	}

	user, err := h.otp.VerifyToken(c.Request().Context(), token)
	switch {
	case errors.Is(err, otp.ErrInvalidCode):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid or expired code"})
	case errors.Is(err, otp.ErrNoPendingSignup):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No pending registration found"})
	case err != nil:
		slog.Error("failed to verify token", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to verify code"})
	}

	cookie, err := h.sessions.Create(user.ID, user.Username)
	if err != nil {
		slog.Error("failed to create session", "error", err, "user_id", user.ID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, map[string]any{
		"message": "Email verified successfully",
		"user":    user,
	})
}

// LoginRequest is the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login checks the credentials and issues a session cookie.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	req.Email = normalizeEmail(req.Email)

	if issues := validation.Struct(req); issues != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "validation failed", "issues": issues})
	}

	user, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, authsvc.ErrDomainNotAllowed):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("only %s email addresses are allowed", h.auth.AllowedDomain()),
		})
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
	case err != nil:
		slog.Error("failed to log in", "error", err, "email", req.Email)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to log in"})
	}

	cookie, err := h.sessions.Create(user.ID, user.Username)
	if err != nil {
		slog.Error("failed to create session", "error", err, "user_id", user.ID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, map[string]any{"user": user})
}

// Logout clears the session cookie.
func (h *AuthHandlers) Logout(c echo.Context) error {
	c.SetCookie(h.sessions.Clear())
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ForgotPasswordRequest is the request body for requesting a reset code.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword issues a password reset code. The response does not
// reveal whether an account exists for the email.
func (h *AuthHandlers) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	req.Email = normalizeEmail(req.Email)

	if issues := validation.Struct(req); issues != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "validation failed", "issues": issues})
	}

	if err := h.auth.CheckDomain(req.Email); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("only %s email addresses are allowed", h.auth.AllowedDomain()),
		})
	}

	if err := h.otp.IssueReset(c.Request().Context(), req.Email); err != nil {
		slog.Error("failed to issue reset code", "error", err, "email", req.Email)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to process request"})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "If an account exists for this email, a reset code has been sent.",
	})
}

// ResetPasswordRequest is the request body for completing a password reset.
type ResetPasswordRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Code     string `json:"code"     validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ResetPassword consumes a reset code and installs the new password.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	req.Email = normalizeEmail(req.Email)

	if issues := validation.Struct(req); issues != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "validation failed", "issues": issues})
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to reset password"})
	}

	err = h.otp.ResetPassword(c.Request().Context(), req.Email, req.Code, hash)
	switch {
	case errors.Is(err, otp.ErrInvalidCode):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid or expired code"})
	case err != nil:
		slog.Error("failed to reset password", "error", err, "email", req.Email)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to reset password"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

// normalizeEmail lowercases and trims an email so lookups are
// case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
