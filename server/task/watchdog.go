// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentwire/agentwire"
	"github.com/agentwire/agentwire/server/event"
)

const (
	// DefaultIdleTimeout is how long a working task may go without a
	// mutation before the watchdog fails it.
	DefaultIdleTimeout = 5 * time.Minute

	// DefaultSweepInterval is how often the watchdog scans for idle tasks.
	DefaultSweepInterval = 30 * time.Second
)

// Watchdog fails working tasks that have produced no events for too
// long, typically because an executor hung or its goroutine died
// without reporting. Failing the task publishes a final status event
// so resubscribed streams terminate instead of waiting forever.
type Watchdog struct {
	manager  *Manager
	queues   event.Manager
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewWatchdog creates a watchdog over the given manager and queue
// manager. Zero durations take the defaults; a nil logger means
// slog.Default.
func NewWatchdog(manager *Manager, queues event.Manager, timeout, interval time.Duration, logger *slog.Logger) (*Watchdog, error) {
	if manager == nil {
		return nil, fmt.Errorf("manager cannot be nil")
	}
	if queues == nil {
		return nil, fmt.Errorf("queue manager cannot be nil")
	}
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{
		manager:  manager,
		queues:   queues,
		timeout:  timeout,
		interval: interval,
		logger:   logger,
	}, nil
}

// Run sweeps periodically until ctx is done.
func (w *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep fails every working task idle past the timeout.
func (w *Watchdog) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.timeout)
	for _, taskID := range w.manager.IdleSince(cutoff) {
		w.failIdleTask(ctx, taskID)
	}
}

func (w *Watchdog) failIdleTask(ctx context.Context, taskID string) {
	t, err := w.manager.Get(ctx, taskID, 0)
	if err != nil {
		w.logger.WarnContext(ctx, "watchdog could not load idle task",
			slog.String("task_id", taskID),
			slog.Any("error", err))
		return
	}
	// Only working tasks stall; input-required waits on the client.
	if t.Status.State != agentwire.TaskStateWorking {
		return
	}

	ev := &agentwire.TaskStatusUpdateEvent{
		Kind:      agentwire.StatusUpdateEventKind,
		TaskID:    t.ID,
		ContextID: t.ContextID,
		Status: agentwire.NewTaskStatus(agentwire.TaskStateFailed,
			agentwire.NewAgentMessage(fmt.Sprintf("task produced no updates for %s", w.timeout))),
		Final: true,
	}

	if _, err := w.manager.ApplyEvent(ctx, ev); err != nil {
		w.logger.WarnContext(ctx, "watchdog could not fail idle task",
			slog.String("task_id", taskID),
			slog.Any("error", err))
		return
	}

	// Best effort: terminate any live stream, then retire the queue.
	if q, err := w.queues.Get(taskID); err == nil {
		_ = q.Enqueue(ctx, ev)
	}
	_ = w.queues.Close(taskID)

	w.logger.WarnContext(ctx, "failed idle task",
		slog.String("task_id", taskID),
		slog.Duration("idle_timeout", w.timeout))
}
