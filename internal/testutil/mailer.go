// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package testutil

import "context"

// SentMail records one delivery attempt made through FakeMailer.
type SentMail struct {
	To    string
	Code  string
	Token string
}

// FakeMailer records outgoing mail instead of delivering it. Set Err to
// simulate a delivery failure.
type FakeMailer struct {
	Verifications []SentMail
	Resets        []SentMail
	Err           error
}

// SendVerification records a verification email.
func (m *FakeMailer) SendVerification(_ context.Context, to, code, token string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Verifications = append(m.Verifications, SentMail{To: to, Code: code, Token: token})
	return nil
}

// SendPasswordReset records a password reset email.
func (m *FakeMailer) SendPasswordReset(_ context.Context, to, code string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Resets = append(m.Resets, SentMail{To: to, Code: code})
	return nil
}
