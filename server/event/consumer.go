// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/agentwire/agentwire"
)

// DefaultPollInterval bounds how long a consumer waits for a single
// event before re-checking for an executor error.
const DefaultPollInterval = 2 * time.Second

// Consumer reads events from a Queue on behalf of one subscriber,
// stopping after the final event of the stream.
type Consumer struct {
	queue *Queue
	poll  time.Duration

	mu  sync.RWMutex
	err error
}

// NewConsumer creates a consumer for the given queue.
func NewConsumer(queue *Queue) *Consumer {
	return &Consumer{
		queue: queue,
		poll:  DefaultPollInterval,
	}
}

// ConsumeOne returns the next buffered event without blocking.
func (c *Consumer) ConsumeOne(ctx context.Context) (agentwire.Event, error) {
	return c.queue.Dequeue(ctx, true)
}

// ConsumeAll returns a channel of events. The channel is closed after
// the final event is delivered, when the queue is closed and drained,
// when ctx is done, or when an executor error is reported via Fail.
// Delivering the final event also closes the queue.
func (c *Consumer) ConsumeAll(ctx context.Context) <-chan agentwire.Event {
	events := make(chan agentwire.Event)

	go func() {
		defer close(events)

		for {
			if c.Err() != nil {
				return
			}

			pollCtx, cancel := context.WithTimeout(ctx, c.pollInterval())
			ev, err := c.queue.Dequeue(pollCtx, false)
			cancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
					continue
				}
				return
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}

			if agentwire.IsFinalEvent(ev) {
				_ = c.queue.Close()
				return
			}
		}
	}()

	return events
}

// Fail records an error from the producing side. ConsumeAll stops at
// the next poll boundary; Err exposes the error to the subscriber.
func (c *Consumer) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Err returns the error recorded by Fail, if any.
func (c *Consumer) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// SetPollInterval overrides the poll interval. Intended for tests.
func (c *Consumer) SetPollInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.poll = d
	}
}

func (c *Consumer) pollInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.poll
}
