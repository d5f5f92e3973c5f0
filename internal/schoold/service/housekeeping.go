package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/neoschool/internal/schoold/store"
)

// DefaultHousekeepingInterval matches the daily revocation-list purge the
// dashboard backend has always run.
const DefaultHousekeepingInterval = 24 * time.Hour

// HousekeepingService periodically drops expired revocations and dead
// refresh tokens so neither list grows without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHousekeepingService returns a stopped service. A non-positive interval
// means DefaultHousekeepingInterval.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
	}
}

// Start runs one cleanup immediately and then one per Interval until Stop.
// Starting a running service does nothing.
func (s *HousekeepingService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)

	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop waits for an in-progress cleanup to finish. It is safe to call on a
// stopped service and more than once.
func (s *HousekeepingService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		s.Cleanup(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Cleanup performs one pass. A failure in one list does not skip the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := s.Now()

	tokens, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}

	revocations, err := s.Store.Revocations().DeleteExpiredRevocations(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired revocations", "error", err)
	}

	s.Logger.Debug("housekeeping pass completed",
		"refresh_tokens_deleted", tokens,
		"revocations_deleted", revocations,
	)
}
