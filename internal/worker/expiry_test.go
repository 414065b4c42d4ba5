package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockExpiryStore implements ExpiryStore for testing
type mockExpiryStore struct {
	mu       sync.Mutex
	calls    int
	sweepErr error
	swept    int64
}

func (m *mockExpiryStore) ExpirePowerUps(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.sweepErr != nil {
		return 0, m.sweepErr
	}
	return m.swept, nil
}

func (m *mockExpiryStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestPowerUpExpiryWorker_RunsOnSchedule(t *testing.T) {
	store := &mockExpiryStore{swept: 3}
	worker := NewPowerUpExpiryWorker(store, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	go worker.Run(ctx)

	// Initial sweep plus at least 2 ticks
	time.Sleep(120 * time.Millisecond)
	cancel()

	if calls := store.callCount(); calls < 3 {
		t.Errorf("Expected at least 3 sweep calls, got %d", calls)
	}
}

func TestPowerUpExpiryWorker_RunsImmediatelyOnStart(t *testing.T) {
	store := &mockExpiryStore{swept: 1}
	worker := NewPowerUpExpiryWorker(store, 1*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())

	go worker.Run(ctx)

	// The startup sweep should land well before the first tick
	time.Sleep(50 * time.Millisecond)
	cancel()

	if calls := store.callCount(); calls != 1 {
		t.Errorf("Expected exactly 1 sweep call at startup, got %d", calls)
	}
}

func TestPowerUpExpiryWorker_GracefulShutdown(t *testing.T) {
	store := &mockExpiryStore{}
	worker := NewPowerUpExpiryWorker(store, 1*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
		// Success
	case <-time.After(1 * time.Second):
		t.Error("Worker did not stop within 1 second")
	}
}

func TestPowerUpExpiryWorker_HandlesStoreError(t *testing.T) {
	store := &mockExpiryStore{sweepErr: errors.New("database error")}
	worker := NewPowerUpExpiryWorker(store, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	// Worker must survive errors and keep ticking
	time.Sleep(120 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Worker did not stop within 1 second")
	}

	if calls := store.callCount(); calls < 2 {
		t.Errorf("Expected worker to keep sweeping after errors, got %d calls", calls)
	}
}
