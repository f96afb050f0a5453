// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth handles password hashing, login, and profile setup.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vuportal/authportal/internal/models"
	"github.com/vuportal/authportal/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDomainNotAllowed   = errors.New("email domain not allowed")
	ErrUserNotFound       = errors.New("user not found")
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

type Service struct {
	repo          *repository.Repository
	allowedDomain string
}

// NewService creates the auth service. allowedDomain is the institutional
// email domain registrations and logins are restricted to.
func NewService(repo *repository.Repository, allowedDomain string) *Service {
	return &Service{
		repo:          repo,
		allowedDomain: strings.ToLower(allowedDomain),
	}
}

// AllowedDomain returns the configured institutional domain.
func (s *Service) AllowedDomain() string {
	return s.allowedDomain
}

// CheckDomain rejects emails outside the institutional domain.
func (s *Service) CheckDomain(email string) error {
	if !strings.HasSuffix(strings.ToLower(email), "@"+s.allowedDomain) {
		return ErrDomainNotAllowed
	}
	return nil
}

// HashPassword hashes a plaintext password with bcrypt.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Login authenticates a user and returns the user if successful.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	if err := s.CheckDomain(email); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "email", email, "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		slog.Warn("login_failed", "email", email, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	slog.Info("login_success", "user_id", user.ID, "email", email)
	return user, nil
}

// SetupProfile sets the degree program and subjects for a user.
func (s *Service) SetupProfile(ctx context.Context, userID int64, degreeProgram string, subjects []string) (*models.User, error) {
	user, err := s.repo.UpdateUserProfile(ctx, userID, degreeProgram, subjects)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	slog.Info("profile_setup", "user_id", userID, "degree_program", degreeProgram)
	return user, nil
}
