package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/Belladihno/paystack-wallet-service/internal/apikey"
	"github.com/Belladihno/paystack-wallet-service/internal/ledger"
)

const timedOutDescription = "transaction timed out after 24 hours"

// Service runs periodic maintenance over stale ledger and credential state.
type Service struct {
	store         ledger.Store
	keys          apikey.Repository
	pendingMaxAge time.Duration
	logger        *slog.Logger
}

// NewService creates a maintenance sweeper.
func NewService(store ledger.Store, keys apikey.Repository, pendingMaxAge time.Duration, logger *slog.Logger) *Service {
	return &Service{store: store, keys: keys, pendingMaxAge: pendingMaxAge, logger: logger}
}

// SweepPendingTransactions fails pending transactions older than the
// configured maximum age and returns how many were updated.
func (s *Service) SweepPendingTransactions(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.pendingMaxAge)
	n, err := s.store.ExpirePendingBefore(ctx, cutoff, timedOutDescription)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired stale pending transactions", "count", n)
	}
	return n, nil
}

// SweepExpiredAPIKeys revokes keys past their expiry and returns how many
// were updated.
func (s *Service) SweepExpiredAPIKeys(ctx context.Context) (int64, error) {
	n, err := s.keys.RevokeExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("revoked expired api keys", "count", n)
	}
	return n, nil
}

// Run executes both sweeps on the given interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepPendingTransactions(ctx); err != nil {
				s.logger.Error("pending transaction sweep failed", "error", err)
			}
			if _, err := s.SweepExpiredAPIKeys(ctx); err != nil {
				s.logger.Error("api key sweep failed", "error", err)
			}
		}
	}
}
