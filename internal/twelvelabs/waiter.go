package twelvelabs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
)

// Indexing task states. The provider may report transitional states
// beyond these; anything not terminal keeps the waiter polling.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// TaskGetter fetches task state; satisfied by *Client.
type TaskGetter interface {
	Task(ctx context.Context, taskID string) (*Task, error)
}

// Clock abstracts time so the waiter is testable without real waits.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Waiter polls an indexing task until it reaches a terminal state.
type Waiter struct {
	tasks    TaskGetter
	clock    Clock
	interval time.Duration
	timeout  time.Duration
	onUpdate func(*Task)
	logger   *zap.Logger
}

// NewWaiter creates a waiter polling at the given interval with an
// overall timeout.
func NewWaiter(tasks TaskGetter, interval, timeout time.Duration) *Waiter {
	return &Waiter{
		tasks:    tasks,
		clock:    realClock{},
		interval: interval,
		timeout:  timeout,
		logger:   logging.GetLogger().With(zap.String("component", "twelvelabs-waiter")),
	}
}

// WithClock overrides the time source, for tests
func (w *Waiter) WithClock(clock Clock) *Waiter {
	w.clock = clock
	return w
}

// OnUpdate registers a progress callback invoked after every poll
func (w *Waiter) OnUpdate(fn func(*Task)) *Waiter {
	w.onUpdate = fn
	return w
}

// Wait polls the task until ready or failed. On ready it returns the
// final task; on failed or timeout it returns an error.
func (w *Waiter) Wait(ctx context.Context, taskID string) (*Task, error) {
	deadline := w.clock.Now().Add(w.timeout)

	for {
		task, err := w.tasks.Task(ctx, taskID)
		if err != nil {
			return nil, err
		}

		if w.onUpdate != nil {
			w.onUpdate(task)
		}
		w.logger.Debug("Indexing task polled",
			zap.String("task_id", taskID), zap.String("status", task.Status))

		switch task.Status {
		case StatusReady:
			return task, nil
		case StatusFailed:
			return nil, fmt.Errorf("indexing failed with status %q", task.Status)
		}

		if w.clock.Now().After(deadline) {
			return nil, fmt.Errorf("indexing task %s did not finish within %s", taskID, w.timeout)
		}
		if err := w.clock.Sleep(ctx, w.interval); err != nil {
			return nil, err
		}
	}
}
