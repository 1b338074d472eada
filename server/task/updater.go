// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentwire/agentwire"
	"github.com/agentwire/agentwire/server/event"
)

// Updater is the executor's handle for publishing task progress. Each
// call emits one protocol event onto the task's queue; the server
// applies the event to the store and fans it out to subscribers.
//
// After a final update the updater refuses further publishes, keeping
// the at-most-one-terminal-event guarantee on the producing side.
type Updater struct {
	taskID    string
	contextID string
	queue     *event.Queue

	mu       sync.Mutex
	terminal bool
}

// NewUpdater creates an updater publishing to the given queue.
func NewUpdater(taskID, contextID string, queue *event.Queue) (*Updater, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task id cannot be empty")
	}
	if contextID == "" {
		return nil, fmt.Errorf("context id cannot be empty")
	}
	if queue == nil {
		return nil, fmt.Errorf("event queue cannot be nil")
	}
	return &Updater{
		taskID:    taskID,
		contextID: contextID,
		queue:     queue,
	}, nil
}

// TaskID returns the id of the task this updater publishes for.
func (u *Updater) TaskID() string { return u.taskID }

// ContextID returns the context id of the task.
func (u *Updater) ContextID() string { return u.contextID }

// Terminal reports whether a final update has been published.
func (u *Updater) Terminal() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.terminal
}

// UpdateStatus publishes a status update. The message is optional.
// Passing final, or any terminal state, ends the stream; later calls
// return an error.
func (u *Updater) UpdateStatus(ctx context.Context, state agentwire.TaskState, message *agentwire.Message, final bool) error {
	u.mu.Lock()
	if u.terminal {
		u.mu.Unlock()
		return fmt.Errorf("task %s already published its final update", u.taskID)
	}
	if final || state.Terminal() {
		u.terminal = true
		final = true
	}
	u.mu.Unlock()

	if message != nil {
		// Stamp a copy so the caller's message stays untouched.
		stamped := *message
		stamped.TaskID = u.taskID
		stamped.ContextID = u.contextID
		message = &stamped
	}

	ev := &agentwire.TaskStatusUpdateEvent{
		Kind:      agentwire.StatusUpdateEventKind,
		TaskID:    u.taskID,
		ContextID: u.contextID,
		Status:    agentwire.NewTaskStatus(state, message),
		Final:     final,
	}
	if err := u.queue.Enqueue(ctx, ev); err != nil {
		return fmt.Errorf("publish status update for task %s: %w", u.taskID, err)
	}
	return nil
}

// AddArtifact publishes an artifact update. With appendParts set the
// artifact's parts extend a previously published artifact with the
// same id; lastChunk marks the end of a chunked artifact.
func (u *Updater) AddArtifact(ctx context.Context, artifact *agentwire.Artifact, appendParts, lastChunk bool) error {
	if artifact == nil {
		return fmt.Errorf("artifact cannot be nil")
	}
	if err := artifact.Validate(); err != nil {
		return err
	}

	u.mu.Lock()
	if u.terminal {
		u.mu.Unlock()
		return fmt.Errorf("task %s already published its final update", u.taskID)
	}
	u.mu.Unlock()

	ev := &agentwire.TaskArtifactUpdateEvent{
		Kind:      agentwire.ArtifactUpdateEventKind,
		TaskID:    u.taskID,
		ContextID: u.contextID,
		Artifact:  artifact,
		Append:    appendParts,
		LastChunk: lastChunk,
	}
	if err := u.queue.Enqueue(ctx, ev); err != nil {
		return fmt.Errorf("publish artifact for task %s: %w", u.taskID, err)
	}
	return nil
}

// Reply publishes an agent message as the result of the exchange.
// A message ends the stream, so the updater is terminal afterwards.
func (u *Updater) Reply(ctx context.Context, message *agentwire.Message) error {
	if message == nil {
		return fmt.Errorf("message cannot be nil")
	}
	if err := message.Validate(); err != nil {
		return err
	}

	u.mu.Lock()
	if u.terminal {
		u.mu.Unlock()
		return fmt.Errorf("task %s already published its final update", u.taskID)
	}
	u.terminal = true
	u.mu.Unlock()

	// Stamp a copy so the caller's message stays untouched.
	stamped := *message
	stamped.TaskID = u.taskID
	stamped.ContextID = u.contextID
	if err := u.queue.Enqueue(ctx, &stamped); err != nil {
		return fmt.Errorf("publish reply for task %s: %w", u.taskID, err)
	}
	return nil
}

// StartWork moves the task to working.
func (u *Updater) StartWork(ctx context.Context) error {
	return u.UpdateStatus(ctx, agentwire.TaskStateWorking, nil, false)
}

// RequireInput pauses the task pending client input. The message
// should tell the client what is needed. The update is final for this
// request's stream: the task stays alive, but no more events follow
// until the client sends a follow-up message.
func (u *Updater) RequireInput(ctx context.Context, message *agentwire.Message) error {
	return u.UpdateStatus(ctx, agentwire.TaskStateInputRequired, message, true)
}

// Complete finishes the task successfully.
func (u *Updater) Complete(ctx context.Context, message *agentwire.Message) error {
	return u.UpdateStatus(ctx, agentwire.TaskStateCompleted, message, true)
}

// Fail finishes the task with an error description.
func (u *Updater) Fail(ctx context.Context, message *agentwire.Message) error {
	return u.UpdateStatus(ctx, agentwire.TaskStateFailed, message, true)
}

// Cancel finishes the task as canceled.
func (u *Updater) Cancel(ctx context.Context, message *agentwire.Message) error {
	return u.UpdateStatus(ctx, agentwire.TaskStateCanceled, message, true)
}
