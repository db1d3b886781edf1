package worker

import (
	"context"
	"sync"
	"time"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context)

// Scheduler runs a job once at start and then on every tick or manual
// trigger. Runs never overlap: a trigger arriving during a run is queued
// once, further triggers are dropped.
type Scheduler struct {
	interval time.Duration
	job      Job
	trigger  chan struct{}

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler. A non-positive interval disables ticks;
// the job then only runs at start and on Trigger.
func NewScheduler(interval time.Duration, job Job) *Scheduler {
	return &Scheduler{
		interval: interval,
		job:      job,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an extra run. It returns false when a run is already
// queued.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Running reports whether a run is in progress.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.runJob(ctx)

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			s.runJob(ctx)
		case <-s.trigger:
			s.runJob(ctx)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.job(ctx)
}
