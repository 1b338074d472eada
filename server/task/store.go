// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"

	"github.com/go-json-experiment/json"

	"github.com/agentwire/agentwire"
)

// Store persists tasks. Implementations must be safe for concurrent
// use; the Manager layers transition checking and per-task ordering on
// top of it.
type Store interface {
	// Save writes a task, inserting or replacing by id.
	Save(ctx context.Context, t *agentwire.Task) error

	// Get returns the task with the given id, or ErrTaskNotFound.
	Get(ctx context.Context, taskID string) (*agentwire.Task, error)

	// Delete removes a task, or returns ErrTaskNotFound.
	Delete(ctx context.Context, taskID string) error

	// List returns tasks, optionally filtered by context id. A limit
	// of 0 means no limit.
	List(ctx context.Context, contextID string, limit, offset int) ([]*agentwire.Task, error)

	// Count returns the number of tasks, optionally filtered by context id.
	Count(ctx context.Context, contextID string) (int64, error)

	// Initialize prepares the backend (tables, indexes).
	Initialize(ctx context.Context) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// cloneTask deep-copies a task through the wire codec so stored tasks
// and returned snapshots never share mutable state with callers.
func cloneTask(t *agentwire.Task) (*agentwire.Task, error) {
	if t == nil {
		return nil, nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("clone task %s: %w", t.ID, err)
	}
	var out agentwire.Task
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("clone task %s: %w", t.ID, err)
	}
	return &out, nil
}
