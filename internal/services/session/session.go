// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session issues and parses signed session cookies.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/vuportal/authportal/internal/config"
)

// ErrNoSession is returned when a request carries no valid session cookie.
var ErrNoSession = errors.New("no valid session")

// Session is the payload stored in the cookie.
type Session struct {
	SID      string `json:"sid"` // random id for log correlation
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
}

// Manager signs (and optionally encrypts) session cookies.
type Manager struct {
	codec      *securecookie.SecureCookie
	cookieName string
	maxAge     int
	secure     bool
}

// NewManager creates a session manager from the given configuration. An
// empty hash key is only acceptable in development; a random one is
// generated and sessions will not survive a restart.
func NewManager(cfg *config.SessionConfig, secure bool) (*Manager, error) {
	hashKey, err := decodeKey(cfg.HashKey, "session hash key")
	if err != nil {
		return nil, err
	}
	if hashKey == nil {
		hashKey = securecookie.GenerateRandomKey(32)
	}

	blockKey, err := decodeKey(cfg.BlockKey, "session block key")
	if err != nil {
		return nil, err
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(cfg.MaxAge)

	return &Manager{
		codec:      codec,
		cookieName: cfg.CookieName,
		maxAge:     cfg.MaxAge,
		secure:     secure,
	}, nil
}

// decodeKey decodes a 32-byte hex key; an empty value yields nil.
func decodeKey(value, name string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must be 32 bytes (64 hex characters)", name)
	}
	return key, nil
}

// Create issues a session cookie bound to the given user.
func (m *Manager) Create(userID int64, username string) (*http.Cookie, error) {
	payload := Session{
		SID:      uuid.New().String(),
		UserID:   userID,
		Username: username,
	}

	encoded, err := m.codec.Encode(m.cookieName, payload)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}

	return &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   m.maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Parse extracts the session from a request, if any.
func (m *Manager) Parse(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, ErrNoSession
	}

	var payload Session
	if err := m.codec.Decode(m.cookieName, cookie.Value, &payload); err != nil {
		return nil, ErrNoSession
	}
	return &payload, nil
}

// Clear returns an expired cookie that removes the session.
func (m *Manager) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// GenerateKey returns a fresh 32-byte key hex-encoded, for config bootstrap.
func GenerateKey() string {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return hex.EncodeToString(key)
}
