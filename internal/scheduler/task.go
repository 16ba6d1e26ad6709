// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/metrics"
)

// task is one named loop. It implements suture.Service.
type task struct {
	sched    *Scheduler
	name     string
	interval time.Duration
	fn       TaskFunc
	token    suture.ServiceToken

	stop     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	state    State
	inflight int
	lastRun  time.Time
	nextRun  time.Time
	lastErr  string
	lastDur  time.Duration
	runs     int64
	failures int64
}

func newTask(s *Scheduler, name string, interval time.Duration, fn TaskFunc) *task {
	return &task{
		sched:    s,
		name:     name,
		interval: interval,
		fn:       fn,
		stop:     make(chan struct{}),
		state:    StateScheduled,
	}
}

// Serve is the loop: launch a run, wait interval, repeat.
func (t *task) Serve(ctx context.Context) error {
	select {
	case <-t.stop:
		return suture.ErrDoNotRestart
	default:
	}

	for {
		t.launch(ctx)

		timer := t.sched.clock.NewTimer(t.interval)
		t.mu.Lock()
		if t.state == StateScheduled {
			t.nextRun = t.sched.clock.Now().Add(t.interval)
		}
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-t.stop:
			timer.Stop()
			return suture.ErrDoNotRestart
		case <-timer.Chan():
		}
	}
}

func (t *task) String() string {
	return "task:" + t.name
}

// cancel moves the task to StateCancelled. It reports false if the task was
// already cancelled.
func (t *task) cancel() bool {
	cancelled := false
	t.stopOnce.Do(func() {
		close(t.stop)
		cancelled = true
	})
	if cancelled {
		t.mu.Lock()
		t.state = StateCancelled
		t.nextRun = time.Time{}
		t.mu.Unlock()
	}
	return cancelled
}

// launch starts one invocation on its own goroutine. A run that outlives the
// interval overlaps with the next one. Runs are detached from loop
// cancellation so shutdown lets them finish; Scheduler.Serve waits for them.
func (t *task) launch(parent context.Context) {
	started := t.sched.clock.Now()

	t.mu.Lock()
	t.inflight++
	t.lastRun = started
	t.mu.Unlock()

	ctx := logging.ContextWithNewCorrelationID(context.WithoutCancel(parent))
	var cancel context.CancelFunc = func() {}
	if t.sched.cfg.RunTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.sched.cfg.RunTimeout)
	}

	t.sched.runs.Add(1)
	go func() {
		defer t.sched.runs.Done()
		defer cancel()

		outcome, err := t.invoke(ctx)
		t.finish(ctx, started, outcome, err)
	}()
}

func (t *task) invoke(ctx context.Context) (outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			err = fmt.Errorf("panic: %v", r)
			logging.Ctx(ctx).Error().
				Str("task", t.name).
				Str("stack", string(debug.Stack())).
				Msg("Scheduled task panicked")
		}
	}()

	if err := t.fn(ctx); err != nil {
		return "error", err
	}
	return "success", nil
}

func (t *task) finish(ctx context.Context, started time.Time, outcome string, err error) {
	finished := t.sched.clock.Now()
	duration := finished.Sub(started)

	t.mu.Lock()
	t.inflight--
	t.runs++
	t.lastDur = duration
	if err != nil {
		t.failures++
		t.lastErr = err.Error()
	} else {
		t.lastErr = ""
	}
	t.mu.Unlock()

	metrics.RecordTaskRun(t.name, outcome, duration, finished)

	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("task", t.name).Dur("duration", duration).Msg("Scheduled task failed")
		return
	}
	logging.Ctx(ctx).Debug().Str("task", t.name).Dur("duration", duration).Msg("Scheduled task finished")
}

// Status returns a snapshot.
func (t *task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		Name:         t.name,
		Interval:     t.interval,
		State:        t.state,
		Running:      t.inflight > 0,
		LastRun:      t.lastRun,
		NextRun:      t.nextRun,
		LastError:    t.lastErr,
		LastDuration: t.lastDur,
		Runs:         t.runs,
		Failures:     t.failures,
	}
}
