package maintenance

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rubiojr/cvsearch/pkg/storage"
)

type countingStore struct {
	optimized   atomic.Int32
	checkpoints atomic.Int32
	failWith    error
}

func (c *countingStore) Optimize() error {
	if c.failWith != nil {
		return c.failWith
	}
	c.optimized.Add(1)
	return nil
}

func (c *countingStore) WALCheckpoint() error {
	c.checkpoints.Add(1)
	return nil
}

func TestRunOnceAgainstSQLite(t *testing.T) {
	store, err := storage.OpenMigrated(filepath.Join(t.TempDir(), "cvsearch.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	s := NewScheduler(store, time.Hour)
	if err := s.RunOnce(); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if s.Runs() != 1 {
		t.Errorf("expected 1 run, got %d", s.Runs())
	}
}

func TestRunOnceStopsOnOptimizeFailure(t *testing.T) {
	store := &countingStore{failWith: errors.New("disk I/O error")}
	s := NewScheduler(store, time.Hour)

	if err := s.RunOnce(); err == nil {
		t.Fatal("expected an error")
	}
	if store.checkpoints.Load() != 0 {
		t.Error("checkpoint must not run after a failed optimize")
	}
	if s.Runs() != 0 {
		t.Errorf("failed passes must not count, got %d", s.Runs())
	}
}

func TestSchedulerRunsPeriodically(t *testing.T) {
	store := &countingStore{}
	s := NewScheduler(store, 10*time.Millisecond)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("expected scheduler to be running")
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected second Start to fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.checkpoints.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if store.checkpoints.Load() < 2 {
		t.Errorf("expected at least 2 passes, got %d", store.checkpoints.Load())
	}
	if s.IsRunning() {
		t.Error("expected scheduler to be stopped")
	}

	after := store.checkpoints.Load()
	time.Sleep(30 * time.Millisecond)
	if store.checkpoints.Load() != after {
		t.Error("scheduler kept running after Stop")
	}
}

func TestSchedulerDisabled(t *testing.T) {
	s := NewScheduler(&countingStore{}, 0)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.IsRunning() {
		t.Error("a zero interval must not start the loop")
	}
	s.Stop()
}

func TestSchedulerStopsWithContext(t *testing.T) {
	store := &countingStore{}
	s := NewScheduler(store, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()
	s.Stop()
}
