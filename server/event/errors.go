// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package event

import "errors"

var (
	// ErrQueueClosed is returned when operating on a closed queue.
	ErrQueueClosed = errors.New("event queue is closed")

	// ErrQueueEmpty is returned by a non-blocking dequeue on an empty queue.
	ErrQueueEmpty = errors.New("event queue is empty")

	// ErrQueueFull is returned when a non-final event is enqueued to a
	// full queue. Final events are never rejected for lack of space.
	ErrQueueFull = errors.New("event queue is full")

	// ErrInvalidQueueSize is returned when a queue is created with a
	// negative capacity.
	ErrInvalidQueueSize = errors.New("queue size must not be negative")
)
