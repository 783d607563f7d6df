// Package scheduler runs the periodic watchlist refresh.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"stock_technicals/internal/feature/technicals/usecase"
)

// Refresher refreshes every active watchlist ticker.
type Refresher interface {
	RefreshAll(ctx context.Context, forceRefresh bool) (usecase.RefreshSummary, error)
}

// RunObserver records the outcome of each run. May be nil.
type RunObserver interface {
	ObserveRefresh(err error)
}

// Scheduler manages the refresh cron task.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	observer  RunObserver
	force     bool
	timeout   time.Duration
}

// NewScheduler creates a new Scheduler. Specs use six fields (seconds first).
func NewScheduler(refresher Refresher, observer RunObserver, force bool, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		refresher: refresher,
		observer:  observer,
		force:     force,
		timeout:   timeout,
	}
}

// Register adds the refresh task for spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	slog.Info("refresh scheduled", "cron", spec, "force", s.force)
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started")
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		slog.Warn("scheduler stop timed out")
	}
	slog.Info("scheduler stopped")
}

// RunNow executes one refresh immediately.
func (s *Scheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	summary, err := s.refresher.RefreshAll(ctx, s.force)
	if s.observer != nil {
		s.observer.ObserveRefresh(err)
	}
	if err != nil {
		slog.Error("scheduled refresh failed", "error", err)
		return
	}
	slog.Info("scheduled refresh done",
		"cached", summary.Cached,
		"fetched", summary.Fetched,
		"unavailable", summary.Unavailable,
		"persisted", summary.Persisted,
		"elapsed", time.Since(start))
}
