// Package scheduler runs the engine's recurring jobs.
//
// Each job has its own cadence and its own goroutine. A job never
// overlaps itself: if a run outlasts the cadence, ticks are dropped
// until it finishes. Jobs are independent; a slow or failing job does
// not affect the others.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// JobFunc is one scheduled unit of work. Errors are logged and the job
// retries on its next tick; panics are contained to the run.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	fn       JobFunc

	mu      sync.Mutex
	running bool
	lastRun time.Time
	lastErr error
}

// Scheduler owns a set of named recurring jobs with explicit Start/Stop.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []*job
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// New builds an empty scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{logger: logger}
}

// Register adds a named job. Must be called before Start.
func (s *Scheduler) Register(name string, interval time.Duration, fn JobFunc) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: job %q: interval must be positive", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler: cannot register %q after start", name)
	}
	for _, j := range s.jobs {
		if j.name == name {
			return fmt.Errorf("scheduler: job %q already registered", name)
		}
	}

	s.jobs = append(s.jobs, &job{name: name, interval: interval, fn: fn})
	return nil
}

// Start launches one ticker goroutine per job. Each job also runs once
// immediately so a restart doesn't wait a full cadence to catch up.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler: already started")
	}
	s.started = true
	s.stopCh = make(chan struct{})

	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}

	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop halts all jobs and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, j *job) {
	defer s.wg.Done()

	s.run(ctx, j)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.run(ctx, j)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// run executes one tick, skipping if the previous run is still going.
func (s *Scheduler) run(ctx context.Context, j *job) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		s.logger.Warn("job still running, skipping tick", "job", j.name)
		return
	}
	j.running = true
	j.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "job", j.name, "panic", r)
		}
		j.mu.Lock()
		j.running = false
		j.lastRun = time.Now().UTC()
		j.mu.Unlock()
	}()

	start := time.Now()
	err := j.fn(ctx)

	j.mu.Lock()
	j.lastErr = err
	j.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed", "job", j.name, "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Debug("job completed", "job", j.name, "duration", time.Since(start))
}

// JobStatus is a point-in-time view of one job, for admin surfaces.
type JobStatus struct {
	Name     string
	Interval time.Duration
	Running  bool
	LastRun  time.Time
	LastErr  error
}

// Status reports all registered jobs.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		j.mu.Lock()
		out = append(out, JobStatus{
			Name:     j.name,
			Interval: j.interval,
			Running:  j.running,
			LastRun:  j.lastRun,
			LastErr:  j.lastErr,
		})
		j.mu.Unlock()
	}
	return out
}
