package worker

import (
	"context"
	"log/slog"
	"time"
)

// ExpiryStore defines the store operations needed by the expiry worker.
type ExpiryStore interface {
	ExpirePowerUps(ctx context.Context) (int64, error)
}

// PowerUpExpiryWorker periodically flags expired unused power-ups so they can
// no longer be spent.
type PowerUpExpiryWorker struct {
	store    ExpiryStore
	interval time.Duration
}

// NewPowerUpExpiryWorker creates a worker with the given store and interval.
func NewPowerUpExpiryWorker(store ExpiryStore, interval time.Duration) *PowerUpExpiryWorker {
	return &PowerUpExpiryWorker{
		store:    store,
		interval: interval,
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled. The first sweep
// runs immediately so power-ups that expired while the service was down are
// dealt with at startup.
func (w *PowerUpExpiryWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "powerup-expiry",
		"interval", w.interval.String(),
	)

	w.runSweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "powerup-expiry",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.runSweep(ctx)
		}
	}
}

// runSweep executes a single expiry sweep.
func (w *PowerUpExpiryWorker) runSweep(ctx context.Context) {
	start := time.Now()

	swept, err := w.store.ExpirePowerUps(ctx)
	if err != nil {
		// Check for graceful shutdown
		if ctx.Err() != nil {
			return
		}
		slog.Error("expiry sweep failed",
			"component", "worker",
			"action", "expiry_failed",
			"error", err,
		)
		return
	}

	if swept > 0 {
		slog.Info("expiry sweep completed",
			"component", "worker",
			"action", "expiry_complete",
			"swept", swept,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
