package background

import (
	"context"
	"log/slog"
	"time"
)

// CounterSweeper is the eviction hook run on each sweep tick
type CounterSweeper interface {
	Sweep(now time.Time) int
}

// SweepManager periodically evicts stale attempt counters from the loop
// guard so the counter map stays bounded under long-lived processes.
type SweepManager struct {
	sweeper  CounterSweeper
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweepManager creates a new sweep manager
func NewSweepManager(sweeper CounterSweeper, logger *slog.Logger, interval time.Duration) *SweepManager {
	return &SweepManager{
		sweeper:  sweeper,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (sm *SweepManager) Start(ctx context.Context) {
	ticker := time.NewTicker(sm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	sm.runSweep()

	for {
		select {
		case <-ticker.C:
			sm.runSweep()
		case <-sm.stopCh:
			sm.logger.Info("sweep manager stopped")
			return
		case <-ctx.Done():
			sm.logger.Info("sweep manager context cancelled")
			return
		}
	}
}

func (sm *SweepManager) runSweep() {
	evicted := sm.sweeper.Sweep(time.Now())
	if evicted > 0 {
		sm.logger.Info("stale attempt counters evicted", slog.Int("evicted", evicted))
	}
}

// Stop signals the sweep manager to stop
func (sm *SweepManager) Stop() {
	close(sm.stopCh)
}
