// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

// Package scheduler runs named tasks on fixed intervals.
//
// Each scheduled task is a loop supervised by suture: invoke the task, wait
// the interval, repeat. A task that returns an error or panics is logged and
// recorded in its Status; the loop carries on at the next interval. Runs may
// overlap when a task takes longer than its interval. Missed runs are not made
// up and nothing is persisted across restarts.
//
// The Scheduler is itself a suture.Service. Add it to the supervisor tree so
// its loops start and stop with the process:
//
//	sched := scheduler.New(scheduler.Config{})
//	sched.Schedule("flags-bestseller", time.Hour, job.Run)
//	tree.AddJobService(sched)
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/thejerf/suture/v4"

	"github.com/essence-shop/essence/internal/logging"
)

// TaskFunc is one invocation of a periodic task.
type TaskFunc func(ctx context.Context) error

// State of a scheduled task.
type State string

const (
	// StateScheduled means the loop is active.
	StateScheduled State = "scheduled"
	// StateCancelled is terminal.
	StateCancelled State = "cancelled"
)

// Sentinel errors.
var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrInvalidTask   = errors.New("task needs a name, a function and a positive interval")
	ErrTaskCancelled = errors.New("task is cancelled")
)

// Status is a snapshot of a task.
type Status struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	State     State         `json:"state"`
	Running   bool          `json:"running"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	NextRun   time.Time     `json:"next_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	// LastDuration is how long the most recently finished run took.
	LastDuration time.Duration `json:"last_duration"`
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
}

// Config configures a Scheduler.
type Config struct {
	// Clock defaults to the wall clock.
	Clock clockwork.Clock
	// RunTimeout bounds a single invocation. Zero means no bound.
	RunTimeout time.Duration
	// ShutdownTimeout is how long the suture supervisor waits for loops to
	// stop. Defaults to 10s.
	ShutdownTimeout time.Duration
	// EventHook receives suture events; nil keeps suture's default.
	EventHook suture.EventHook
}

// Scheduler owns a registry of named periodic tasks.
type Scheduler struct {
	sup   *suture.Supervisor
	clock clockwork.Clock
	cfg   Config
	runs  sync.WaitGroup

	mu    sync.Mutex
	tasks map[string]*task
}

// New creates a Scheduler with no tasks.
func New(cfg Config) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	spec := suture.Spec{Timeout: cfg.ShutdownTimeout}
	if cfg.EventHook != nil {
		spec.EventHook = cfg.EventHook
	}
	return &Scheduler{
		sup:   suture.New("scheduler", spec),
		clock: cfg.Clock,
		cfg:   cfg,
		tasks: make(map[string]*task),
	}
}

// Schedule registers fn to run every interval under name. A task already
// scheduled under name is cancelled first, so at most one loop per name is
// ever active.
func (s *Scheduler) Schedule(name string, interval time.Duration, fn TaskFunc) error {
	if name == "" || fn == nil || interval <= 0 {
		return ErrInvalidTask
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.tasks[name]; ok {
		s.cancelLocked(prev)
		logging.Info().Str("task", name).Msg("Rescheduling task, previous loop cancelled")
	}

	t := newTask(s, name, interval, fn)
	t.token = s.sup.Add(t)
	s.tasks[name] = t

	logging.Info().Str("task", name).Dur("interval", interval).Msg("Task scheduled")
	return nil
}

// Cancel stops the loop registered under name. The task stays visible in
// Status as cancelled.
func (s *Scheduler) Cancel(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	s.cancelLocked(t)
	return nil
}

// CancelAll cancels every loop. No task is left in StateScheduled.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		s.cancelLocked(t)
	}
	logging.Info().Int("tasks", len(s.tasks)).Msg("All scheduled tasks cancelled")
}

// cancelLocked must be called with s.mu held.
func (s *Scheduler) cancelLocked(t *task) {
	if !t.cancel() {
		return
	}
	// Before the supervisor runs, Remove reports ErrSupervisorNotStarted; the
	// loop then sees its stop channel closed on first start and exits.
	if err := s.sup.Remove(t.token); err != nil && !errors.Is(err, suture.ErrSupervisorNotStarted) {
		logging.Warn().Err(err).Str("task", t.name).Msg("Failed to remove task from supervisor")
	}
}

// RunNow starts one extra invocation of the named task immediately. It does
// not shift the loop's schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	if t.Status().State == StateCancelled {
		return fmt.Errorf("%w: %s", ErrTaskCancelled, name)
	}
	t.launch(context.Background())
	return nil
}

// Status returns the snapshot for name.
func (s *Scheduler) Status(name string) (Status, error) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	return t.Status(), nil
}

// StatusAll returns every task sorted by name.
func (s *Scheduler) StatusAll() []Status {
	s.mu.Lock()
	out := make([]Status, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Status())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Wait blocks until every in-flight invocation has returned or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve runs the task loops until ctx is cancelled, then waits for in-flight
// invocations up to the shutdown timeout.
func (s *Scheduler) Serve(ctx context.Context) error {
	err := s.sup.Serve(ctx)

	waitCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if werr := s.Wait(waitCtx); werr != nil {
		logging.Warn().Msg("Scheduler stopped with task runs still in flight")
	}
	return err
}

// String implements fmt.Stringer for suture logging.
func (s *Scheduler) String() string {
	return "scheduler"
}

// GetSupervisor lets a parent supervisor share its event hook with the
// scheduler's loops (suture.HasSupervisor).
func (s *Scheduler) GetSupervisor() *suture.Supervisor {
	return s.sup
}
