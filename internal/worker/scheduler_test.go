package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_RunsAtStartAndOnTick(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	s := NewScheduler(10*time.Millisecond, func(context.Context) {
		if runs.Add(1) == 3 {
			cancel()
		}
	})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	if got := runs.Load(); got != 3 {
		t.Errorf("expected 3 runs, got %d", got)
	}
}

func TestScheduler_TriggerWithoutInterval(t *testing.T) {
	ran := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewScheduler(0, func(context.Context) { ran <- struct{}{} })
	go func() { _ = s.Run(ctx) }()

	<-ran // start-up run
	if !s.Trigger() {
		t.Fatal("expected trigger to be queued")
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("triggered run did not happen")
	}
}

func TestScheduler_RunsNeverOverlap(t *testing.T) {
	var active, maxActive atomic.Int32
	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewScheduler(time.Millisecond, func(context.Context) {
		n := active.Add(1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		<-release
		active.Add(-1)
	})
	go func() { _ = s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !s.Running() {
		if time.Now().After(deadline) {
			t.Fatal("job never started")
		}
		time.Sleep(time.Millisecond)
	}

	s.Trigger()
	if s.Trigger() {
		t.Error("expected second trigger to be dropped while one is queued")
	}

	for i := 0; i < 3; i++ {
		release <- struct{}{}
	}
	cancel()
	close(release)

	if got := maxActive.Load(); got != 1 {
		t.Errorf("expected at most one active run, got %d", got)
	}
}
