// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vuportal/authportal/internal/config"
	"github.com/vuportal/authportal/internal/services/email"
)

func validSMTPConfig() *config.SMTPConfig {
	return &config.SMTPConfig{
		Host:     "smtp.vu.edu.pk",
		Port:     587,
		Username: "testuser",
		Password: "testpass",
		From:     "noreply@vu.edu.pk",
		FromName: "VU Auth Portal",
		TLS:      true,
	}
}

func TestNewService(t *testing.T) {
	cfg := validSMTPConfig()

	svc, err := email.NewService(cfg, "https://portal.vu.edu.pk", 15*time.Minute)

	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewService_MissingHost(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.Host = ""

	_, err := email.NewService(cfg, "https://portal.vu.edu.pk", 15*time.Minute)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP host is required")
}

func TestNewService_MissingFrom(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.From = ""

	_, err := email.NewService(cfg, "https://portal.vu.edu.pk", 15*time.Minute)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP from address is required")
}

func TestVerifyURL(t *testing.T) {
	svc, err := email.NewService(validSMTPConfig(), "https://portal.vu.edu.pk/", 15*time.Minute)
	require.NoError(t, err)

	url := svc.VerifyURL("deadbeef")

	// Trailing slash on the base URL must be trimmed
	assert.Equal(t, "https://portal.vu.edu.pk/verify-email?token=deadbeef", url)
}
