// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/agentwire/agentwire"
)

// lockShards is the number of per-task mutex shards. Task ids hash
// onto shards so writes to one task never interleave while unrelated
// tasks stay concurrent.
const lockShards = 64

// validTransitions maps each non-terminal state to the states it may
// move to. Terminal states have no entry: nothing leaves them. A
// same-state update is always allowed for non-terminal states so
// progress messages can refresh the status.
var validTransitions = map[agentwire.TaskState][]agentwire.TaskState{
	agentwire.TaskStateSubmitted: {
		agentwire.TaskStateWorking,
		agentwire.TaskStateCanceled,
		agentwire.TaskStateFailed,
	},
	agentwire.TaskStateWorking: {
		agentwire.TaskStateInputRequired,
		agentwire.TaskStateCompleted,
		agentwire.TaskStateCanceled,
		agentwire.TaskStateFailed,
	},
	agentwire.TaskStateInputRequired: {
		agentwire.TaskStateWorking,
		agentwire.TaskStateCanceled,
		agentwire.TaskStateFailed,
	},
}

// CanTransition reports whether a task may move from one lifecycle
// state to another. Same-state updates of a non-terminal state are
// permitted.
func CanTransition(from, to agentwire.TaskState) bool {
	if from.Terminal() {
		return false
	}
	if from == to {
		_, known := validTransitions[from]
		return known
	}
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Manager owns task lifecycle writes. Every mutation of a task goes
// through the manager, which serializes writers per task id and
// enforces the transition rules before anything reaches the store.
type Manager struct {
	store  Store
	logger *slog.Logger

	locks [lockShards]sync.Mutex

	// activity tracks the last mutation time of non-terminal tasks for
	// the idle watchdog.
	activityMu sync.Mutex
	activity   map[string]time.Time
}

// NewManager creates a manager over the given store. A nil logger
// means slog.Default.
func NewManager(store Store, logger *slog.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		logger:   logger,
		activity: make(map[string]time.Time),
	}, nil
}

// Store exposes the underlying store for read paths that bypass the
// write lock, such as tasks/list.
func (m *Manager) Store() Store { return m.store }

func (m *Manager) lock(taskID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(taskID))
	return &m.locks[h.Sum32()%lockShards]
}

func (m *Manager) touch(taskID string, state agentwire.TaskState) {
	m.activityMu.Lock()
	defer m.activityMu.Unlock()
	if state.Terminal() {
		delete(m.activity, taskID)
		return
	}
	m.activity[taskID] = time.Now()
}

// Upsert resolves the task a message is addressed to. A message with
// no task id creates a fresh submitted task. A message addressed to an
// existing task continues it: the message is appended to history and
// the task snapshot returned. Continuing is only legal from submitted
// or input-required; a working task is busy and a terminal task admits
// no further input.
func (m *Manager) Upsert(ctx context.Context, message *agentwire.Message) (*agentwire.Task, error) {
	if message == nil {
		return nil, agentwire.ErrInvalidParams.WithMessage("message cannot be nil")
	}
	if err := message.Validate(); err != nil {
		return nil, agentwire.ErrInvalidParams.WithMessage("%s", err.Error())
	}

	if message.TaskID == "" {
		t, err := agentwire.NewTask(message)
		if err != nil {
			return nil, agentwire.ErrInvalidParams.WithMessage("%s", err.Error())
		}

		mu := m.lock(t.ID)
		mu.Lock()
		defer mu.Unlock()

		if err := m.store.Save(ctx, t); err != nil {
			return nil, err
		}
		m.touch(t.ID, t.Status.State)
		m.logger.DebugContext(ctx, "task created",
			slog.String("task_id", t.ID),
			slog.String("context_id", t.ContextID))
		return t, nil
	}

	mu := m.lock(message.TaskID)
	mu.Lock()
	defer mu.Unlock()

	t, err := m.store.Get(ctx, message.TaskID)
	if err != nil {
		return nil, err
	}

	switch {
	case t.Status.State.Terminal():
		return nil, agentwire.ErrInvalidTransition.WithMessage(
			"task %s is %s and accepts no further messages", t.ID, t.Status.State)
	case t.Status.State == agentwire.TaskStateWorking:
		return nil, agentwire.ErrTaskBusy.WithMessage(
			"task %s is already being processed", t.ID)
	}

	t.History = append(t.History, message)
	if err := m.store.Save(ctx, t); err != nil {
		return nil, err
	}
	m.touch(t.ID, t.Status.State)
	return t, nil
}

// Get returns a task snapshot. A positive historyLength trims the
// history to the most recent messages.
func (m *Manager) Get(ctx context.Context, taskID string, historyLength int) (*agentwire.Task, error) {
	t, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if historyLength > 0 && len(t.History) > historyLength {
		t.History = t.History[len(t.History)-historyLength:]
	}
	return t, nil
}

// List returns stored tasks, optionally filtered by context id. A
// limit of 0 means no limit.
func (m *Manager) List(ctx context.Context, contextID string, limit int) ([]*agentwire.Task, error) {
	return m.store.List(ctx, contextID, limit, 0)
}

// ApplyEvent folds one protocol event into the stored task and returns
// the updated snapshot. Status updates are checked against the
// transition rules; artifact updates merge by artifact id; agent
// messages append to history; a task event replaces the snapshot.
func (m *Manager) ApplyEvent(ctx context.Context, ev agentwire.Event) (*agentwire.Task, error) {
	if ev == nil {
		return nil, agentwire.ErrInternal.WithMessage("event cannot be nil")
	}
	taskID := ev.EventTaskID()
	if taskID == "" {
		return nil, agentwire.ErrInternal.WithMessage("event carries no task id")
	}

	mu := m.lock(taskID)
	mu.Lock()
	defer mu.Unlock()

	switch e := ev.(type) {
	case *agentwire.Task:
		if err := m.store.Save(ctx, e); err != nil {
			return nil, err
		}
		m.touch(e.ID, e.Status.State)
		return e, nil

	case *agentwire.Message:
		t, err := m.store.Get(ctx, taskID)
		if err != nil {
			return nil, err
		}
		t.History = append(t.History, e)
		if err := m.store.Save(ctx, t); err != nil {
			return nil, err
		}
		m.touch(t.ID, t.Status.State)
		return t, nil

	case *agentwire.TaskStatusUpdateEvent:
		return m.applyStatusUpdate(ctx, e)

	case *agentwire.TaskArtifactUpdateEvent:
		return m.applyArtifactUpdate(ctx, e)

	default:
		return nil, agentwire.ErrInternal.WithMessage("unknown event kind %q", ev.EventKind())
	}
}

func (m *Manager) applyStatusUpdate(ctx context.Context, e *agentwire.TaskStatusUpdateEvent) (*agentwire.Task, error) {
	t, err := m.store.Get(ctx, e.TaskID)
	if err != nil {
		return nil, err
	}

	from, to := t.Status.State, e.Status.State
	if !CanTransition(from, to) {
		return nil, agentwire.ErrInvalidTransition.WithMessage(
			"task %s cannot move from %s to %s", t.ID, from, to)
	}

	// The outgoing status message becomes history so input-required
	// prompts survive the next transition.
	if t.Status.Message != nil {
		t.History = append(t.History, t.Status.Message)
	}
	t.Status = e.Status
	if t.Status.Timestamp == "" {
		t.Status.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	if err := m.store.Save(ctx, t); err != nil {
		return nil, err
	}
	m.touch(t.ID, to)
	m.logger.DebugContext(ctx, "task transitioned",
		slog.String("task_id", t.ID),
		slog.String("from", string(from)),
		slog.String("to", string(to)))
	return t, nil
}

func (m *Manager) applyArtifactUpdate(ctx context.Context, e *agentwire.TaskArtifactUpdateEvent) (*agentwire.Task, error) {
	if e.Artifact == nil {
		return nil, agentwire.ErrInvalidParams.WithMessage("artifact update carries no artifact")
	}
	if err := e.Artifact.Validate(); err != nil {
		return nil, agentwire.ErrInvalidParams.WithMessage("%s", err.Error())
	}

	t, err := m.store.Get(ctx, e.TaskID)
	if err != nil {
		return nil, err
	}
	if t.Status.State.Terminal() {
		return nil, agentwire.ErrInvalidTransition.WithMessage(
			"task %s is %s and accepts no further artifacts", t.ID, t.Status.State)
	}

	existing := t.Artifact(e.Artifact.ArtifactID)
	switch {
	case existing == nil:
		t.Artifacts = append(t.Artifacts, e.Artifact)
	case e.Append:
		existing.Parts = append(existing.Parts, e.Artifact.Parts...)
		if e.Artifact.Index > existing.Index {
			existing.Index = e.Artifact.Index
		}
	default:
		*existing = *e.Artifact
	}

	if err := m.store.Save(ctx, t); err != nil {
		return nil, err
	}
	m.touch(t.ID, t.Status.State)
	return t, nil
}

// CancelableState reports whether the task with the given id may be
// canceled, returning its current snapshot.
func (m *Manager) CancelableState(ctx context.Context, taskID string) (*agentwire.Task, error) {
	t, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status.State.Terminal() {
		return nil, agentwire.ErrTaskNotCancelable.WithMessage(
			"task %s is already %s", t.ID, t.Status.State)
	}
	return t, nil
}

// IdleSince returns the ids of non-terminal tasks whose last mutation
// predates the cutoff.
func (m *Manager) IdleSince(cutoff time.Time) []string {
	m.activityMu.Lock()
	defer m.activityMu.Unlock()

	var ids []string
	for id, last := range m.activity {
		if last.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}
