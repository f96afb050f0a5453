// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models defines the database records for the auth portal.
package models

import "time"

// Role values for User.Role.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User is a confirmed account. It is created exactly once, from a
// PendingUser, when a verification code is consumed.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID            int64      `db:"id" json:"id"`
	FullName      string     `db:"full_name" json:"fullName"`
	Username      string     `db:"username" json:"username"`
	Email         string     `db:"email" json:"email"`
	Password      string     `db:"password" json:"-"` // bcrypt hash
	DegreeProgram string     `db:"degree_program" json:"degreeProgram,omitempty"`
	Subjects      StringList `db:"subjects" json:"subjects,omitempty"`
	Role          string     `db:"role" json:"role"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// PendingUser is a staged registration awaiting email verification. The
// password is already hashed when the record is written. At most one row
// per email exists at a time.
type PendingUser struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"fullName"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"` // bcrypt hash
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
