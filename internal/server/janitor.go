// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/vuportal/authportal/internal/repository"
)

// Janitor periodically purges expired verification codes and stale
// pending registrations. Expired rows are already invisible to lookups;
// the janitor only keeps the tables from growing without bound.
type Janitor struct {
	repo       *repository.Repository
	interval   time.Duration
	pendingTTL time.Duration
}

// NewJanitor creates a janitor. interval controls how often a sweep runs;
// pending registrations older than pendingTTL are removed.
func NewJanitor(repo *repository.Repository, interval, pendingTTL time.Duration) *Janitor {
	return &Janitor{
		repo:       repo,
		interval:   interval,
		pendingTTL: pendingTTL,
	}
}

// Run sweeps on a ticker until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep deletes expired codes and stale pending registrations once.
func (j *Janitor) Sweep(ctx context.Context) {
	codes, err := j.repo.DeleteExpiredOtpCodes(ctx)
	if err != nil {
		slog.Error("failed to purge expired codes", "error", err)
	}

	cutoff := time.Now().Add(-j.pendingTTL)
	pending, err := j.repo.DeleteStalePendingUsers(ctx, cutoff)
	if err != nil {
		slog.Error("failed to purge stale pending users", "error", err)
	}

	if codes > 0 || pending > 0 {
		slog.Info("cleanup_done", "expired_codes", codes, "stale_pending", pending)
	}
}
