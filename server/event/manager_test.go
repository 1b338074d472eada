// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryManager_Get(t *testing.T) {
	t.Parallel()

	m := NewInMemoryManager(8)

	q1, err := m.Get("task-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	q2, err := m.Get("task-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if q1 != q2 {
		t.Error("Get() returned a different queue for the same task id")
	}

	q3, err := m.Get("task-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if q3 == q1 {
		t.Error("Get() returned the same queue for different task ids")
	}
	if got := m.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestInMemoryManager_Tap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewInMemoryManager(8)

	child, err := m.Tap("task-1")
	if err != nil {
		t.Fatalf("Tap() error = %v", err)
	}

	parent, err := m.Get("task-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if err := parent.Enqueue(ctx, workingStatusEvent("task-1")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if _, err := child.Dequeue(ctx, false); err != nil {
		t.Errorf("child Dequeue() error = %v", err)
	}
}

func TestInMemoryManager_Close(t *testing.T) {
	t.Parallel()

	m := NewInMemoryManager(8)

	if err := m.Close("missing"); err != nil {
		t.Errorf("Close() of unknown task error = %v", err)
	}

	q, err := m.Get("task-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if err := m.Close("task-1"); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !q.IsClosed() {
		t.Error("queue not closed by manager Close()")
	}
	if got := m.Len(); got != 0 {
		t.Errorf("Len() = %d after Close(), want 0", got)
	}

	// A later Get creates a fresh queue.
	q2, err := m.Get("task-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if q2.IsClosed() {
		t.Error("Get() after Close() returned a closed queue")
	}
	if err := q2.Enqueue(context.Background(), workingStatusEvent("task-1")); errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue() to recreated queue error = %v", err)
	}
}

func TestInMemoryManager_CloseAll(t *testing.T) {
	t.Parallel()

	m := NewInMemoryManager(8)

	q1, _ := m.Get("task-1")
	q2, _ := m.Get("task-2")

	if err := m.CloseAll(); err != nil {
		t.Fatalf("CloseAll() error = %v", err)
	}
	if !q1.IsClosed() || !q2.IsClosed() {
		t.Error("CloseAll() left a queue open")
	}
	if got := m.Len(); got != 0 {
		t.Errorf("Len() = %d after CloseAll(), want 0", got)
	}
}
