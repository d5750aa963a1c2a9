package admin

import (
	"context"
	"time"

	"github.com/giro-sh/license-server/internal/logx"
)

// Sweeper periodically purges expired refresh tokens and revoked API keys
// created before the retention cutoff so the two tables don't grow
// unbounded (SPEC_FULL §C).
type Sweeper struct {
	refreshRepo RefreshTokenRepository
	apiKeyRepo  ApiKeyRepository
	interval    time.Duration
	retention   time.Duration
}

func NewSweeper(refreshRepo RefreshTokenRepository, apiKeyRepo ApiKeyRepository, interval, retention time.Duration) *Sweeper {
	if interval == 0 {
		interval = time.Hour
	}
	if retention == 0 {
		retention = 30 * 24 * time.Hour
	}
	return &Sweeper{refreshRepo: refreshRepo, apiKeyRepo: apiKeyRepo, interval: interval, retention: retention}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.retention)

	if n, err := s.refreshRepo.DeleteExpiredBefore(ctx, cutoff); err != nil {
		logx.WithError(err).Error("sweep: failed to delete expired refresh tokens")
	} else if n > 0 {
		logx.WithFields(logx.Fields{"deleted": n}).Info("sweep: purged expired refresh tokens")
	}

	if n, err := s.apiKeyRepo.DeleteRevokedBefore(ctx, cutoff); err != nil {
		logx.WithError(err).Error("sweep: failed to delete revoked api keys")
	} else if n > 0 {
		logx.WithFields(logx.Fields{"deleted": n}).Info("sweep: purged revoked api keys")
	}
}
