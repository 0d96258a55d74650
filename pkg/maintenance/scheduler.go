// Package maintenance keeps the database healthy while the server runs.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rubiojr/cvsearch/pkg/log"
)

// Store is the subset of storage.Store the scheduler drives.
type Store interface {
	Optimize() error
	WALCheckpoint() error
}

// Scheduler periodically runs PRAGMA optimize and truncates the WAL.
type Scheduler struct {
	store    Store
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running bool
	runs    int
}

// NewScheduler creates a scheduler running every interval. A zero interval
// disables it: Start becomes a no-op.
func NewScheduler(store Store, interval time.Duration) *Scheduler {
	return &Scheduler{
		store:    store,
		interval: interval,
		logger:   log.ForService("maintenance"),
	}
}

// Start launches the background loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("maintenance scheduler is already running")
	}
	if s.interval <= 0 {
		s.logger.Debugf("scheduled maintenance disabled")
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	ticker := time.NewTicker(s.interval)
	s.wg.Add(1)
	go s.run(ctx, ticker)

	s.logger.Infof("scheduled maintenance every %v", s.interval)
	return nil
}

func (s *Scheduler) run(ctx context.Context, ticker *time.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(); err != nil {
				s.logger.Warnf("scheduled maintenance failed: %v", err)
			}
		}
	}
}

// RunOnce optimizes the database and checkpoints the WAL.
func (s *Scheduler) RunOnce() error {
	start := time.Now()
	if err := s.store.Optimize(); err != nil {
		return fmt.Errorf("optimizing database: %w", err)
	}
	if err := s.store.WALCheckpoint(); err != nil {
		return fmt.Errorf("checkpointing WAL: %w", err)
	}

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	s.logger.Debugf("maintenance finished in %v", time.Since(start))
	return nil
}

// Runs returns how many maintenance passes completed.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Stop ends the loop and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
