// README: Cancellable periodic tasks and one-shot timers used by every tracker loop.
package sched

import (
	"context"
	"sync"
	"time"
)

// Task runs fn on a fixed interval until stopped. Start and Stop are
// idempotent, and Stop may safely be called from within fn itself (a
// task is allowed to stop itself on a tick).
type Task struct {
	interval  time.Duration
	fn        func(context.Context)
	immediate bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

type Option func(*Task)

// Immediate makes the task fire once right after Start, before the
// first interval elapses.
func Immediate() Option {
	return func(t *Task) { t.immediate = true }
}

func NewTask(interval time.Duration, fn func(context.Context), opts ...Option) *Task {
	t := &Task{interval: interval, fn: fn}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.run(ctx)
}

func (t *Task) run(ctx context.Context) {
	if t.immediate {
		t.fn(ctx)
	}
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			t.fn(ctx)
		}
	}
}

// Stop cancels the task. The tick in flight, if any, observes a
// cancelled context; no new ticks fire afterwards.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Running reports whether the task has been started and not yet stopped.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// Timer is a resettable one-shot timer. The zero delay is not valid;
// construct through NewTimer.
type Timer struct {
	delay time.Duration
	fn    func()

	mu    sync.Mutex
	timer *time.Timer
}

func NewTimer(delay time.Duration, fn func()) *Timer {
	return &Timer{delay: delay, fn: fn}
}

// Reset (re)arms the timer; fn fires once after the delay unless Reset
// or Stop is called first.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.delay, t.fn)
}

func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
