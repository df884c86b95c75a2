package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/govsignin/accountsvc/internal/accounts/store"
)

// HousekeepingService periodically cleans up expired database records to
// prevent unbounded growth of nonces, sessions, outcomes, codes and tokens.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// Non-blocking; call Stop() to gracefully shut the worker down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker. Blocks until any
// in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup deletes the expired records. Each deletion is independent;
// failures in one table do not stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now().Unix()

	sweeps := []struct {
		name string
		fn   func(context.Context, int64) error
	}{
		{"nonces", s.Store.Nonces().DeleteExpiredNonces},
		{"api sessions", s.Store.APISessions().DeleteExpiredAPISessions},
		{"frontend sessions", s.Store.FrontendSessions().DeleteExpiredFrontendSessions},
		{"journey outcomes", s.Store.Outcomes().DeleteExpiredOutcomes},
		{"auth codes", s.Store.AuthCodes().DeleteExpiredAuthCodes},
		{"access tokens", s.Store.AccessTokens().DeleteExpiredAccessTokens},
	}

	var succeeded int
	for _, sweep := range sweeps {
		if err := sweep.fn(ctx, now); err != nil {
			s.Logger.Error("housekeeping sweep failed", "table", sweep.name, "error", err)
			continue
		}
		succeeded++
	}

	s.Logger.Info("housekeeping cleanup completed", "successful_sweeps", succeeded)
}
