package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisterValidation(t *testing.T) {
	s := New(nil)

	if err := s.Register("a", 0, func(context.Context) error { return nil }); err == nil {
		t.Error("expected error for zero interval")
	}

	if err := s.Register("a", time.Second, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Register("a", time.Second, func(context.Context) error { return nil }); err == nil {
		t.Error("expected error for duplicate name")
	}
}

func TestRunsImmediatelyAndOnCadence(t *testing.T) {
	s := New(nil)

	var runs atomic.Int64
	err := s.Register("counter", 20*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(90 * time.Millisecond)
	s.Stop()

	got := runs.Load()
	if got < 2 {
		t.Errorf("expected at least 2 runs (immediate + ticks), got %d", got)
	}
}

func TestNoOverlap(t *testing.T) {
	s := New(nil)

	var concurrent atomic.Int64
	var maxSeen atomic.Int64
	err := s.Register("slow", 10*time.Millisecond, func(context.Context) error {
		cur := concurrent.Add(1)
		if cur > maxSeen.Load() {
			maxSeen.Store(cur)
		}
		time.Sleep(50 * time.Millisecond)
		concurrent.Add(-1)
		return nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(120 * time.Millisecond)
	s.Stop()

	if maxSeen.Load() > 1 {
		t.Errorf("job overlapped itself: max concurrency %d", maxSeen.Load())
	}
}

func TestFailingJobKeepsTicking(t *testing.T) {
	s := New(nil)

	var runs atomic.Int64
	err := s.Register("flaky", 15*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(70 * time.Millisecond)
	s.Stop()

	if runs.Load() < 2 {
		t.Errorf("failing job should keep running, got %d runs", runs.Load())
	}

	st := s.Status()
	if len(st) != 1 || st[0].LastErr == nil {
		t.Error("status should expose the last error")
	}
}

func TestPanicContained(t *testing.T) {
	s := New(nil)

	var runs atomic.Int64
	err := s.Register("panicky", 15*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		panic("boom")
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(70 * time.Millisecond)
	s.Stop()

	if runs.Load() < 2 {
		t.Errorf("panicking job should keep ticking, got %d runs", runs.Load())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(nil)
	if err := s.Register("noop", time.Second, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
	s.Stop()
}

func TestRegisterAfterStartRejected(t *testing.T) {
	s := New(nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	if err := s.Register("late", time.Second, func(context.Context) error { return nil }); err == nil {
		t.Error("expected error registering after start")
	}
}
