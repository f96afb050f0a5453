// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vuportal/authportal/internal/auth"
	authsvc "github.com/vuportal/authportal/internal/services/auth"
	"github.com/vuportal/authportal/internal/validation"
)

// UserHandlers contains handlers for the signed-in user's own account.
type UserHandlers struct {
	auth *authsvc.Service
}

// NewUser creates a new UserHandlers instance.
func NewUser(authSvc *authsvc.Service) *UserHandlers {
	return &UserHandlers{auth: authSvc}
}

// SetupProfileRequest is the request body for completing the profile.
type SetupProfileRequest struct {
	DegreeProgram string   `json:"degreeProgram" validate:"required,min=2,max=100"`
	Subjects      []string `json:"subjects"      validate:"required,min=1,dive,required"`
}

// SetupProfile stores the degree program and subject list for the
// authenticated user.
func (h *UserHandlers) SetupProfile(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
	}

	var req SetupProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if issues := validation.Struct(req); issues != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "validation failed", "issues": issues})
	}

	updated, err := h.auth.SetupProfile(c.Request().Context(), user.ID, req.DegreeProgram, req.Subjects)
	switch {
	case errors.Is(err, authsvc.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
	case err != nil:
		slog.Error("failed to update profile", "error", err, "user_id", user.ID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update profile"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message": "Profile updated",
		"user":    updated,
	})
}

// Me returns the authenticated user's account.
func (h *UserHandlers) Me(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
	}
	return c.JSON(http.StatusOK, map[string]any{"user": user})
}
