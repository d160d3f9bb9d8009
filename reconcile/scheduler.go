/*
scheduler.go - Periodic resync

PURPOSE:
  Periodically calls Coordinator.LoadAll so a long-running client picks up
  edits made by other sessions. Each run is an explicit resync: collections
  move Ready|Stale -> Loading -> Ready|Stale.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Runs once immediately on Start
  - A run that overlaps a caller's LoadAll is coalesced with it

USAGE:
  scheduler := NewScheduler(coord)
  scheduler.Interval = time.Minute
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - coordinator.go: LoadAll
*/
package reconcile

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/interpreter-billing/billing"
)

// Scheduler triggers LoadAll on a fixed interval.
type Scheduler struct {
	Coordinator *Coordinator
	Interval    time.Duration
	Enabled     bool

	// OnSync, if set, receives the result of every run.
	OnSync func(billing.Snapshot, error)

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler with a one minute interval.
func NewScheduler(c *Coordinator) *Scheduler {
	return &Scheduler{
		Coordinator: c,
		Interval:    time.Minute,
		Enabled:     true,
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started with interval: %v", s.Interval)
}

// Stop stops the scheduler and waits for a run in progress to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.cancel()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	log.Println("[Scheduler] Stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	s.sync(s.ctx)

	for {
		select {
		case <-s.ticker.C:
			s.sync(s.ctx)
		case <-s.stop:
			return
		}
	}
}

// RunNow triggers an immediate resync on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context) (billing.Snapshot, error) {
	return s.sync(ctx)
}

func (s *Scheduler) sync(ctx context.Context) (billing.Snapshot, error) {
	snap, err := s.Coordinator.LoadAll(ctx)
	if err != nil {
		log.Printf("[Scheduler] Resync finished with errors: %v", err)
	}
	if s.OnSync != nil {
		s.OnSync(snap, err)
	}
	return snap, err
}

// NextRunTime returns when the next scheduled resync will occur.
func (s *Scheduler) NextRunTime() time.Time {
	return time.Now().Add(s.Interval)
}
