// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp implements the email verification lifecycle: staging a
// registration, issuing a numeric code plus a magic-link token, consuming
// either exactly once, and promoting the pending user to a confirmed
// account.
package otp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/vuportal/authportal/internal/models"
	"github.com/vuportal/authportal/internal/repository"
)

var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidCode     = errors.New("invalid or expired code")
	ErrNoPendingSignup = errors.New("no pending registration found")
)

// TokenLength is the number of random bytes in a magic-link token.
const TokenLength = 32

// codeMin/codeSpan bound the numeric code space. Codes below 100000 are
// rejected so every code is exactly six digits with no suppressed leading
// zero.
const (
	codeMin  = 100000
	codeSpan = 900000
)

// Mailer delivers the portal's verification and reset emails.
type Mailer interface {
	SendVerification(ctx context.Context, to, code, token string) error
	SendPasswordReset(ctx context.Context, to, code string) error
}

// Service drives OTP issuance, verification, and pending-user promotion.
type Service struct {
	repo   *repository.Repository
	mailer Mailer
	expiry time.Duration
}

// NewService creates a new OTP service. expiry is the shared lifetime of
// every code issued.
func NewService(repo *repository.Repository, mailer Mailer, expiry time.Duration) *Service {
	return &Service{
		repo:   repo,
		mailer: mailer,
		expiry: expiry,
	}
}

// GenerateCode draws a code uniformly from the 6-digit space
// [100000, 999999] using crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

// GenerateToken returns a cryptographically random 32-byte value encoded
// as 64 hexadecimal characters.
func GenerateToken() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// SignupParams is a validated signup payload. Password must already be
// hashed; it is stored as-is.
type SignupParams struct {
	FullName string
	Username string
	Email    string
	Password string
}

// IssueSignup stages a pending user, issues a numeric code and a
// magic-link token sharing one expiry, and emails both. If mail delivery
// fails the staged rows are rolled back so the signup can be retried.
func (s *Service) IssueSignup(ctx context.Context, params SignupParams) error {
	if err := s.checkAvailability(ctx, params.Email, params.Username); err != nil {
		return err
	}

	pending := &models.PendingUser{
		FullName: params.FullName,
		Username: params.Username,
		Email:    params.Email,
		Password: params.Password,
	}
	if err := s.repo.CreatePendingUser(ctx, pending); err != nil {
		return fmt.Errorf("staging pending user: %w", err)
	}

	code, err := GenerateCode()
	if err != nil {
		s.rollbackStaging(ctx, params.Email)
		return err
	}
	token, err := GenerateToken()
	if err != nil {
		s.rollbackStaging(ctx, params.Email)
		return err
	}

	expiresAt := time.Now().UTC().Add(s.expiry)
	rows := []*models.OtpCode{
		{Email: params.Email, Code: code, Kind: models.OtpKindNumeric, ExpiresAt: expiresAt},
		{Email: params.Email, Code: token, Kind: models.OtpKindMagicLink, ExpiresAt: expiresAt},
	}
	for _, row := range rows {
		if err := s.repo.CreateOtpCode(ctx, row); err != nil {
			// An orphan pending row would block this email until the
			// pending TTL runs out.
			s.rollbackStaging(ctx, params.Email)
			return fmt.Errorf("storing verification code: %w", err)
		}
	}

	if err := s.mailer.SendVerification(ctx, params.Email, code, token); err != nil {
		s.rollbackStaging(ctx, params.Email)
		return fmt.Errorf("sending verification email: %w", err)
	}

	slog.Info("signup_staged", "email", params.Email, "username", params.Username, "expires_at", expiresAt)
	return nil
}

// checkAvailability rejects a signup whose email or username collides
// with a confirmed user or an existing pending registration.
func (s *Service) checkAvailability(ctx context.Context, email, username string) error {
	user, err := s.repo.GetUserByEmailOrUsername(ctx, email, username)
	if err == nil {
		if user.Email == email {
			return ErrEmailTaken
		}
		return ErrUsernameTaken
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("checking existing users: %w", err)
	}

	if _, err := s.repo.GetPendingUserByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("checking pending users: %w", err)
	}

	if _, err := s.repo.GetPendingUserByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("checking pending users: %w", err)
	}

	return nil
}

// rollbackStaging undoes the writes of IssueSignup after a mail failure.
func (s *Service) rollbackStaging(ctx context.Context, email string) {
	if err := s.repo.DeleteOtpCodesForEmail(ctx, email); err != nil {
		slog.Error("failed to roll back verification codes", "error", err, "email", email)
	}
	if err := s.repo.DeletePendingUser(ctx, email); err != nil {
		slog.Error("failed to roll back pending user", "error", err, "email", email)
	}
}

// Verify consumes a code (numeric or magic-link) and promotes the pending
// user to a confirmed account. Wrong, expired, and already-used codes all
// fail with ErrInvalidCode so the caller cannot tell which case occurred.
func (s *Service) Verify(ctx context.Context, email, code string) (*models.User, error) {
	row, err := s.repo.GetOtpCode(ctx, email, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("verify_failed", "email", email, "reason", "invalid_code")
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("looking up code: %w", err)
	}
	if row.Kind == models.OtpKindReset {
		// Reset codes never confirm a signup.
		slog.Warn("verify_failed", "email", email, "reason", "invalid_code")
		return nil, ErrInvalidCode
	}

	pending, err := s.repo.GetPendingUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("verify_failed", "email", email, "reason", "no_pending_signup")
			return nil, ErrNoPendingSignup
		}
		return nil, fmt.Errorf("looking up pending user: %w", err)
	}

	user := &models.User{
		FullName: pending.FullName,
		Username: pending.Username,
		Email:    pending.Email,
		Password: pending.Password, // already hashed
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	if err := s.repo.DeletePendingUser(ctx, email); err != nil {
		return nil, fmt.Errorf("deleting pending user: %w", err)
	}

	// Consuming the row guards against a racing attempt with the same
	// code even though the pending user is already gone.
	if err := s.repo.MarkOtpCodeUsed(ctx, row.ID); err != nil {
		return nil, fmt.Errorf("consuming code: %w", err)
	}

	slog.Info("verify_success", "user_id", user.ID, "email", email, "kind", row.Kind)
	return user, nil
}

// VerifyToken consumes a magic-link token that arrives without an email,
// as happens when the link from the verification mail is opened directly.
func (s *Service) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	row, err := s.repo.GetOtpCodeByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("verify_failed", "reason", "invalid_token")
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("looking up token: %w", err)
	}
	return s.Verify(ctx, row.Email, token)
}

// IssueReset issues a password reset code for a confirmed user. Unknown
// emails are ignored silently so the endpoint cannot be used to probe for
// accounts.
func (s *Service) IssueReset(ctx context.Context, email string) error {
	if _, err := s.repo.GetUserByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Info("reset_skipped", "email", email, "reason", "unknown_account")
			return nil
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	code, err := GenerateCode()
	if err != nil {
		return err
	}

	row := &models.OtpCode{
		Email:     email,
		Code:      code,
		Kind:      models.OtpKindReset,
		ExpiresAt: time.Now().UTC().Add(s.expiry),
	}
	if err := s.repo.CreateOtpCode(ctx, row); err != nil {
		return fmt.Errorf("storing reset code: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, email, code); err != nil {
		// Remove only the row just issued; other codes for this email
		// may still be valid.
		if delErr := s.repo.DeleteOtpCode(ctx, row.ID); delErr != nil {
			slog.Error("failed to roll back reset code", "error", delErr, "email", email)
		}
		return fmt.Errorf("sending reset email: %w", err)
	}

	slog.Info("reset_issued", "email", email)
	return nil
}

// ResetPassword consumes a reset code and installs the new password hash.
func (s *Service) ResetPassword(ctx context.Context, email, code, passwordHash string) error {
	row, err := s.repo.GetOtpCode(ctx, email, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("reset_failed", "email", email, "reason", "invalid_code")
			return ErrInvalidCode
		}
		return fmt.Errorf("looking up code: %w", err)
	}
	if row.Kind != models.OtpKindReset {
		slog.Warn("reset_failed", "email", email, "reason", "invalid_code")
		return ErrInvalidCode
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCode
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	if err := s.repo.MarkOtpCodeUsed(ctx, row.ID); err != nil {
		return fmt.Errorf("consuming code: %w", err)
	}

	if err := s.repo.UpdateUserPassword(ctx, user.ID, passwordHash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	slog.Info("password_reset", "user_id", user.ID, "email", email)
	return nil
}
