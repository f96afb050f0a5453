// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vuportal/authportal/internal/auth"
	"github.com/vuportal/authportal/internal/repository"
	"github.com/vuportal/authportal/internal/services/session"
)

// LoadUser returns middleware that resolves the session cookie to a user
// record and stores it in the request context. Requests without a valid
// session pass through unauthenticated.
func LoadUser(sessions *session.Manager, repo *repository.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := sessions.Parse(c.Request())
			if err != nil {
				return next(c)
			}

			user, err := repo.GetUserByID(c.Request().Context(), sess.UserID)
			if err != nil {
				// Session refers to a deleted account; treat as signed out.
				return next(c)
			}

			ctx := auth.SetUser(c.Request().Context(), user)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireAuth rejects requests without an authenticated user.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !auth.IsAuthenticated(c.Request().Context()) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		}
		return next(c)
	}
}
