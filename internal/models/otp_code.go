// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// OtpKind tags a verification code by how it is delivered. Numeric codes
// and magic-link tokens share one expiry window and one consumption path;
// reset codes drive the password reset flow.
type OtpKind string

const (
	OtpKindNumeric   OtpKind = "numeric"    // 6-digit code typed by the user
	OtpKindMagicLink OtpKind = "magic_link" // 64-hex token embedded in a link
	OtpKindReset     OtpKind = "reset"      // 6-digit password reset code
)

// OtpCode is a single-use verification artifact. A code that is expired
// or already marked used must never validate.
type OtpCode struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Code      string    `db:"code" json:"-"`
	Kind      OtpKind   `db:"kind" json:"kind"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Used      bool      `db:"used" json:"used"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
