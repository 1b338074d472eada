// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package event

import "sync"

// Manager owns the event queues of in-flight tasks, keyed by task id.
type Manager interface {
	// Get returns the queue for a task, creating it if necessary.
	Get(taskID string) (*Queue, error)
	// Tap returns a child queue for a task. The task's queue is
	// created first if it does not exist.
	Tap(taskID string) (*Queue, error)
	// Close closes and forgets the queue for a task.
	Close(taskID string) error
	// CloseAll closes every managed queue.
	CloseAll() error
}

// InMemoryManager is a Manager backed by a map.
type InMemoryManager struct {
	mu     sync.RWMutex
	queues map[string]*Queue
	size   int
}

var _ Manager = (*InMemoryManager)(nil)

// NewInMemoryManager creates a manager whose queues have the given
// capacity. A capacity of 0 or less means DefaultQueueSize.
func NewInMemoryManager(queueSize int) *InMemoryManager {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &InMemoryManager{
		queues: make(map[string]*Queue),
		size:   queueSize,
	}
}

// Get returns the queue for a task, creating it if necessary.
func (m *InMemoryManager) Get(taskID string) (*Queue, error) {
	m.mu.RLock()
	q, ok := m.queues[taskID]
	m.mu.RUnlock()
	if ok {
		return q, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok = m.queues[taskID]; ok {
		return q, nil
	}
	q, err := NewQueue(m.size)
	if err != nil {
		return nil, err
	}
	m.queues[taskID] = q
	return q, nil
}

// Tap returns a child queue for a task.
func (m *InMemoryManager) Tap(taskID string) (*Queue, error) {
	q, err := m.Get(taskID)
	if err != nil {
		return nil, err
	}
	return q.Tap()
}

// Close closes and forgets the queue for a task. Closing a task with
// no queue is a no-op.
func (m *InMemoryManager) Close(taskID string) error {
	m.mu.Lock()
	q, ok := m.queues[taskID]
	delete(m.queues, taskID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return q.Close()
}

// CloseAll closes every managed queue.
func (m *InMemoryManager) CloseAll() error {
	m.mu.Lock()
	queues := m.queues
	m.queues = make(map[string]*Queue)
	m.mu.Unlock()

	for _, q := range queues {
		_ = q.Close()
	}
	return nil
}

// Len returns the number of live queues.
func (m *InMemoryManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.queues)
}
