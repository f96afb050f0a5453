// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/vuportal/authportal/internal/models"
)

// CreateUser inserts a confirmed user and fills in its ID.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = models.RoleStudent
	}
	if user.Subjects == nil {
		user.Subjects = models.StringList{}
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (full_name, username, email, password, degree_program, subjects, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.FullName, user.Username, user.Email, user.Password,
		user.DegreeProgram, user.Subjects, user.Role, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return err
	}

	user.ID, err = res.LastInsertId()
	return err
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmailOrUsername retrieves a user matching either value. Used as
// the uniqueness pre-check before staging a registration.
func (r *Repository) GetUserByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT * FROM users WHERE email = ? OR username = ?`, email, username)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// UpdateUserProfile sets the degree program and subjects for a user and
// returns the updated record.
func (r *Repository) UpdateUserProfile(ctx context.Context, id int64, degreeProgram string, subjects []string) (*models.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET degree_program = ?, subjects = ?, updated_at = ? WHERE id = ?`,
		degreeProgram, models.StringList(subjects), time.Now().UTC(), id)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return r.GetUserByID(ctx, id)
}

// UpdateUserPassword replaces a user's password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
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
