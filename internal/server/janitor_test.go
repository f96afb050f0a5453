// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuportal/authportal/internal/models"
	"github.com/vuportal/authportal/internal/repository"
	"github.com/vuportal/authportal/internal/server"
	"github.com/vuportal/authportal/internal/testutil"
)

func TestJanitorSweep(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	// Expired and live codes.
	testutil.NewTestOtpCode(t, repo, "old@vu.edu.pk", "111111", models.OtpKindNumeric, time.Now().Add(-time.Hour))
	live := testutil.NewTestOtpCode(t, repo, "new@vu.edu.pk", "222222", models.OtpKindNumeric, time.Now().Add(15*time.Minute))

	// Stale and fresh pending registrations.
	stale := testutil.NewTestPendingUser(t, repo, "old", "old@vu.edu.pk")
	_, err := repo.DB().ExecContext(ctx,
		`UPDATE pending_users SET created_at = ? WHERE id = ?`,
		time.Now().UTC().Add(-48*time.Hour), stale.ID)
	require.NoError(t, err)
	testutil.NewTestPendingUser(t, repo, "new", "new@vu.edu.pk")

	j := server.NewJanitor(repo, time.Minute, 24*time.Hour)
	j.Sweep(ctx)

	_, err = repo.GetOtpCode(ctx, "new@vu.edu.pk", "222222")
	require.NoError(t, err)
	assert.NotZero(t, live.ID)

	var codeCount int
	require.NoError(t, repo.DB().GetContext(ctx, &codeCount, `SELECT COUNT(*) FROM otp_codes`))
	assert.Equal(t, 1, codeCount)

	_, err = repo.GetPendingUserByEmail(ctx, "old@vu.edu.pk")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetPendingUserByEmail(ctx, "new@vu.edu.pk")
	assert.NoError(t, err)
}

func TestJanitorRunStopsOnCancel(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	j := server.NewJanitor(repo, time.Millisecond, 24*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
