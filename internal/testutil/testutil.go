// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"github.com/vuportal/authportal/internal/database"
	"github.com/vuportal/authportal/internal/models"
	"github.com/vuportal/authportal/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestUser creates a confirmed user in the database. The password is
// stored bcrypt-hashed so login flows work against it.
func NewTestUser(t *testing.T, repo *repository.Repository, username, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		FullName: "Test User",
		Username: username,
		Email:    email,
		Password: string(hash),
	}
	err = repo.CreateUser(context.Background(), user)
	require.NoError(t, err)
	return user
}

// NewTestPendingUser stages a registration in the database.
func NewTestPendingUser(t *testing.T, repo *repository.Repository, username, email string) *models.PendingUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	pending := &models.PendingUser{
		FullName: "Test User",
		Username: username,
		Email:    email,
		Password: string(hash),
	}
	err = repo.CreatePendingUser(context.Background(), pending)
	require.NoError(t, err)
	return pending
}

// NewTestOtpCode creates a verification code row for an email.
func NewTestOtpCode(t *testing.T, repo *repository.Repository, email, code string, kind models.OtpKind, expiresAt time.Time) *models.OtpCode {
	t.Helper()
	row := &models.OtpCode{
		Email:     email,
		Code:      code,
		Kind:      kind,
		ExpiresAt: expiresAt,
	}
	err := repo.CreateOtpCode(context.Background(), row)
	require.NoError(t, err)
	return row
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
