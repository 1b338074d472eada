// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/agentwire/agentwire"
)

// InMemoryStore is a Store backed by a map. Task data is lost when the
// process stops.
type InMemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*agentwire.Task
	// order preserves insertion order for List.
	order []string
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tasks: make(map[string]*agentwire.Task),
	}
}

// Save writes a task, inserting or replacing by id.
func (s *InMemoryStore) Save(ctx context.Context, t *agentwire.Task) error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := t.Validate(); err != nil {
		return err
	}

	stored, err := cloneTask(t)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[t.ID]; !exists {
		s.order = append(s.order, t.ID)
	}
	s.tasks[t.ID] = stored
	return nil
}

// Get returns the task with the given id.
func (s *InMemoryStore) Get(ctx context.Context, taskID string) (*agentwire.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task id cannot be empty")
	}

	s.mu.RLock()
	t, ok := s.tasks[taskID]
	s.mu.RUnlock()
	if !ok {
		return nil, agentwire.ErrTaskNotFound.WithMessage("task %s not found", taskID)
	}
	return cloneTask(t)
}

// Delete removes a task.
func (s *InMemoryStore) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[taskID]; !ok {
		return agentwire.ErrTaskNotFound.WithMessage("task %s not found", taskID)
	}
	delete(s.tasks, taskID)
	for i, id := range s.order {
		if id == taskID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns tasks in insertion order, optionally filtered by
// context id.
func (s *InMemoryStore) List(ctx context.Context, contextID string, limit, offset int) ([]*agentwire.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []*agentwire.Task
	skipped := 0
	for _, id := range s.order {
		t := s.tasks[id]
		if contextID != "" && t.ContextID != contextID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(tasks) >= limit {
			break
		}
		copied, err := cloneTask(t)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, copied)
	}
	return tasks, nil
}

// Count returns the number of tasks, optionally filtered by context id.
func (s *InMemoryStore) Count(ctx context.Context, contextID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if contextID == "" {
		return int64(len(s.tasks)), nil
	}
	var n int64
	for _, t := range s.tasks {
		if t.ContextID == contextID {
			n++
		}
	}
	return n, nil
}

// Initialize is a no-op for the in-memory store.
func (s *InMemoryStore) Initialize(ctx context.Context) error { return nil }

// Close discards all tasks.
func (s *InMemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]*agentwire.Task)
	s.order = nil
	return nil
}

// Len returns the number of stored tasks.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// TaskIDs returns the stored task ids, sorted.
func (s *InMemoryStore) TaskIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
