// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/vuportal/authportal/internal/models"
)

// CreatePendingUser stages a registration awaiting verification.
func (r *Repository) CreatePendingUser(ctx context.Context, pending *models.PendingUser) error {
	pending.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO pending_users (full_name, username, email, password, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		pending.FullName, pending.Username, pending.Email, pending.Password, pending.CreatedAt)
	if err != nil {
		return err
	}

	pending.ID, err = res.LastInsertId()
	return err
}

// GetPendingUserByEmail retrieves the staged registration for an email.
func (r *Repository) GetPendingUserByEmail(ctx context.Context, email string) (*models.PendingUser, error) {
	var pending models.PendingUser
	err := r.db.GetContext(ctx, &pending, `SELECT * FROM pending_users WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &pending, nil
}

// GetPendingUserByUsername retrieves a staged registration by username.
func (r *Repository) GetPendingUserByUsername(ctx context.Context, username string) (*models.PendingUser, error) {
	var pending models.PendingUser
	err := r.db.GetContext(ctx, &pending, `SELECT * FROM pending_users WHERE username = ?`, username)
	if err != nil {
		return nil, wrapError(err)
	}
	return &pending, nil
}

// DeletePendingUser removes the staged registration for an email.
func (r *Repository) DeletePendingUser(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_users WHERE email = ?`, email)
	return err
}

// DeleteStalePendingUsers removes registrations staged before the cutoff.
// Returns the number of rows removed. The cutoff is normalized to UTC to
// match how created_at is stored.
func (r *Repository) DeleteStalePendingUsers(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_users WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
