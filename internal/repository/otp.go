// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/vuportal/authportal/internal/models"
)

// CreateOtpCode inserts a verification code row and fills in its ID.
// Timestamps are stored in UTC; a zoned ExpiresAt would serialize with its
// offset and break the textual comparison in the expiry filters.
func (r *Repository) CreateOtpCode(ctx context.Context, code *models.OtpCode) error {
	code.CreatedAt = time.Now().UTC()
	code.ExpiresAt = code.ExpiresAt.UTC()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO otp_codes (email, code, kind, expires_at, used, created_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		code.Email, code.Code, code.Kind, code.ExpiresAt, code.CreatedAt)
	if err != nil {
		return err
	}

	code.ID, err = res.LastInsertId()
	return err
}

// GetOtpCode retrieves an unused, unexpired code matching (email, code).
// Expired or consumed rows are never returned.
func (r *Repository) GetOtpCode(ctx context.Context, email, code string) (*models.OtpCode, error) {
	var row models.OtpCode
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM otp_codes WHERE email = ? AND code = ? AND used = 0 AND expires_at > ?`,
		email, code, time.Now().UTC())
	if err != nil {
		return nil, wrapError(err)
	}
	return &row, nil
}

// GetOtpCodeByToken retrieves an unused, unexpired magic-link row by its
// token alone. Magic links carry no email, so the lookup cannot be scoped
// to an account.
func (r *Repository) GetOtpCodeByToken(ctx context.Context, token string) (*models.OtpCode, error) {
	var row models.OtpCode
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM otp_codes WHERE code = ? AND kind = ? AND used = 0 AND expires_at > ?`,
		token, models.OtpKindMagicLink, time.Now().UTC())
	if err != nil {
		return nil, wrapError(err)
	}
	return &row, nil
}

// MarkOtpCodeUsed consumes a code so it can never validate again.
func (r *Repository) MarkOtpCodeUsed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE otp_codes SET used = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOtpCode removes a single code row by ID.
func (r *Repository) DeleteOtpCode(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE id = ?`, id)
	return err
}

// DeleteOtpCodesForEmail removes all codes issued to an email. Used to roll
// back staging when mail delivery fails.
func (r *Repository) DeleteOtpCodesForEmail(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE email = ?`, email)
	return err
}

// DeleteExpiredOtpCodes removes codes past their expiry. Returns the number
// of rows removed. Correctness never depends on this running.
func (r *Repository) DeleteExpiredOtpCodes(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
