// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"sync"

	"github.com/agentwire/agentwire"
)

// DefaultQueueSize is the default queue capacity.
const DefaultQueueSize = 1024

// Queue is a bounded FIFO of protocol events for a single task.
//
// A queue may have child queues created by Tap. Every event enqueued
// to the parent is also delivered to each child, so one subscriber can
// drive task processing while others observe the same stream.
//
// Overflow policy: a non-final event enqueued to a full queue is
// rejected with ErrQueueFull, while a final event blocks until space
// frees up. A subscriber may therefore miss intermediate updates under
// pressure, but never the event that terminates the stream.
type Queue struct {
	events chan agentwire.Event
	size   int

	mu       sync.RWMutex
	closed   bool
	children []*Queue

	closeOnce sync.Once
	done      chan struct{}
}

// NewQueue creates a queue with the given capacity. A capacity of 0
// means DefaultQueueSize.
func NewQueue(size int) (*Queue, error) {
	if size < 0 {
		return nil, ErrInvalidQueueSize
	}
	if size == 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		events: make(chan agentwire.Event, size),
		size:   size,
		done:   make(chan struct{}),
	}, nil
}

// Enqueue adds an event to the queue and to every child queue.
//
// If the queue is full, a non-final event is dropped with ErrQueueFull
// and a final event blocks until it can be accepted or ctx is done.
func (q *Queue) Enqueue(ctx context.Context, ev agentwire.Event) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	children := make([]*Queue, len(q.children))
	copy(children, q.children)
	q.mu.RUnlock()

	if agentwire.IsFinalEvent(ev) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return ErrQueueClosed
		case q.events <- ev:
		}
	} else {
		select {
		case q.events <- ev:
		default:
			return ErrQueueFull
		}
	}

	for _, child := range children {
		// Children are fed inline so every subscriber observes events
		// in publish order. A slow child may shed intermediate events,
		// but final events block per child so no stream ends without
		// its terminal event.
		if err := child.Enqueue(ctx, ev); err != nil && err != ErrQueueFull && err != ErrQueueClosed {
			return err
		}
	}
	return nil
}

// Dequeue removes and returns the oldest event. With noWait set it
// returns ErrQueueEmpty instead of blocking; otherwise it blocks until
// an event arrives, ctx is done, or the queue is closed and drained.
func (q *Queue) Dequeue(ctx context.Context, noWait bool) (agentwire.Event, error) {
	if noWait {
		select {
		case ev := <-q.events:
			return ev, nil
		default:
			if q.IsClosed() {
				return nil, ErrQueueClosed
			}
			return nil, ErrQueueEmpty
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev := <-q.events:
		return ev, nil
	case <-q.done:
		// Drain anything enqueued before the close.
		select {
		case ev := <-q.events:
			return ev, nil
		default:
			return nil, ErrQueueClosed
		}
	}
}

// Tap creates a child queue that receives a copy of every event
// enqueued to this queue from now on.
func (q *Queue) Tap() (*Queue, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}
	child, err := NewQueue(q.size)
	if err != nil {
		return nil, err
	}
	q.children = append(q.children, child)
	return child, nil
}

// Close closes the queue and all its children. Events already queued
// remain readable; further enqueues fail with ErrQueueClosed. Close is
// idempotent.
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		children := q.children
		q.mu.Unlock()

		close(q.done)
		for _, child := range children {
			_ = child.Close()
		}
	})
	return nil
}

// IsClosed reports whether Close has been called.
func (q *Queue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Len returns the number of events currently buffered.
func (q *Queue) Len() int { return len(q.events) }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return q.size }
