// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"testing"

	"github.com/agentwire/agentwire"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(NewInMemoryStore(), nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func submitTask(t *testing.T, m *Manager) *agentwire.Task {
	t.Helper()
	tk, err := m.Upsert(context.Background(), agentwire.NewUserMessage("roll a d20"))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	return tk
}

func statusEvent(tk *agentwire.Task, state agentwire.TaskState, final bool) *agentwire.TaskStatusUpdateEvent {
	return &agentwire.TaskStatusUpdateEvent{
		Kind:      agentwire.StatusUpdateEventKind,
		TaskID:    tk.ID,
		ContextID: tk.ContextID,
		Status:    agentwire.NewTaskStatus(state, nil),
		Final:     final,
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		from, to agentwire.TaskState
		want     bool
	}{
		"submitted to working":        {agentwire.TaskStateSubmitted, agentwire.TaskStateWorking, true},
		"submitted to canceled":       {agentwire.TaskStateSubmitted, agentwire.TaskStateCanceled, true},
		"submitted to completed":      {agentwire.TaskStateSubmitted, agentwire.TaskStateCompleted, false},
		"working to input-required":   {agentwire.TaskStateWorking, agentwire.TaskStateInputRequired, true},
		"working to completed":        {agentwire.TaskStateWorking, agentwire.TaskStateCompleted, true},
		"working to failed":           {agentwire.TaskStateWorking, agentwire.TaskStateFailed, true},
		"working to working":          {agentwire.TaskStateWorking, agentwire.TaskStateWorking, true},
		"working to submitted":        {agentwire.TaskStateWorking, agentwire.TaskStateSubmitted, false},
		"input-required to working":   {agentwire.TaskStateInputRequired, agentwire.TaskStateWorking, true},
		"input-required to canceled":  {agentwire.TaskStateInputRequired, agentwire.TaskStateCanceled, true},
		"input-required to completed": {agentwire.TaskStateInputRequired, agentwire.TaskStateCompleted, false},
		"completed to working":        {agentwire.TaskStateCompleted, agentwire.TaskStateWorking, false},
		"completed to completed":      {agentwire.TaskStateCompleted, agentwire.TaskStateCompleted, false},
		"canceled to failed":          {agentwire.TaskStateCanceled, agentwire.TaskStateFailed, false},
		"failed to working":           {agentwire.TaskStateFailed, agentwire.TaskStateWorking, false},
		"unknown to working":          {agentwire.TaskStateUnknown, agentwire.TaskStateWorking, false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %t, want %t", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestManager_UpsertCreatesSubmittedTask(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	msg := agentwire.NewUserMessage("roll a d6")

	tk, err := m.Upsert(context.Background(), msg)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if tk.ID == "" || tk.ContextID == "" {
		t.Errorf("Upsert() returned task with empty ids: %+v", tk)
	}
	if got := tk.Status.State; got != agentwire.TaskStateSubmitted {
		t.Errorf("new task state = %s, want %s", got, agentwire.TaskStateSubmitted)
	}
	if len(tk.History) != 1 || tk.History[0].MessageID != msg.MessageID {
		t.Errorf("new task history = %+v, want the triggering message", tk.History)
	}
}

func TestManager_UpsertUnknownTaskID(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	msg := agentwire.NewUserMessage("continue")
	msg.TaskID = "no-such-task"

	_, err := m.Upsert(context.Background(), msg)
	if !errors.Is(err, agentwire.ErrTaskNotFound) {
		t.Errorf("Upsert() error = %v, want %v", err, agentwire.ErrTaskNotFound)
	}
}

func TestManager_UpsertContinuesInputRequiredTask(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t)
	tk := submitTask(t, m)

	if _, err := m.ApplyEvent(ctx, statusEvent(tk, agentwire.TaskStateWorking, false)); err != nil {
		t.Fatalf("ApplyEvent(working) error = %v", err)
	}
	if _, err := m.ApplyEvent(ctx, statusEvent(tk, agentwire.TaskStateInputRequired, false)); err != nil {
		t.Fatalf("ApplyEvent(input-required) error = %v", err)
	}

	followUp := agentwire.NewUserMessage("make it two dice")
	followUp.TaskID = tk.ID

	got, err := m.Upsert(ctx, followUp)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if got.ID != tk.ID {
		t.Errorf("Upsert() returned task %s, want %s", got.ID, tk.ID)
	}
	last := got.History[len(got.History)-1]
	if last.MessageID != followUp.MessageID {
		t.Errorf("history tail = %s, want the follow-up message", last.MessageID)
	}
}

func TestManager_UpsertRejectsBusyTask(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t)
	tk := submitTask(t, m)

	if _, err := m.ApplyEvent(ctx, statusEvent(tk, agentwire.TaskStateWorking, false)); err != nil {
		t.Fatalf("ApplyEvent(working) error = %v", err)
	}

	msg := agentwire.NewUserMessage("another one")
	msg.TaskID = tk.ID
	if _, err := m.Upsert(ctx, msg); !errors.Is(err, agentwire.ErrTaskBusy) {
		t.Errorf("Upsert() to working task error = %v, want %v", err, agentwire.ErrTaskBusy)
	}
}

func TestManager_UpsertRejectsTerminalTask(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t)
	tk := submitTask(t, m)

	if _, err := m.ApplyEvent(ctx, statusEvent(tk, agentwire.TaskStateWorking, false)); err != nil {
		t.Fatalf("ApplyEvent(working) error = %v", err)
	}
	if _, err := m.ApplyEvent(ctx, statusEvent(tk, agentwire.TaskStateCompleted, true)); err != nil {
		t.Fatalf("ApplyEvent(completed) error = %v", err)
	}

	msg := agentwire.NewUserMessage("too late")
	msg.TaskID = tk.ID
	if _, err := m.Upsert(ctx, msg); !errors.Is(err, agentwire.ErrInvalidTransition) {
		t.Errorf("Upsert() to completed task error = %v, want %v", err, agentwire.ErrInvalidTransition)
	}
}

func TestManager_ApplyEventRejectsInvalidTransition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t)
	tk := submitTask(t, m)

	// submitted may not jump straight to completed.
	_, err := m.ApplyEvent(ctx, statusEvent(tk, agentwire.TaskStateCompleted, true))
	if !errors.Is(err, agentwire.ErrInvalidTransition) {
		t.Fatalf("ApplyEvent(completed) error = %v, want %v", err, agentwire.ErrInvalidTransition)
	}

	// The failed transition must not have touched the stored state.
	got, err := m.Get(ctx, tk.ID, 0)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status.State != agentwire.TaskStateSubmitted {
		t.Errorf("state after rejected transition = %s, want %s", got.Status.State, agentwire.TaskStateSubmitted)
	}
}

func TestManager_ApplyEventNoExitFromTerminal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t)
	tk := submitTask(t, m)

	for _, ev := range []*agentwire.TaskStatusUpdateEvent{
		statusEvent(tk, agentwire.TaskStateWorking, false),
		statusEvent(tk, agentwire.TaskStateCanceled, true),
	} {
		if _, err := m.ApplyEvent(ctx, ev); err != nil {
			t.Fatalf("ApplyEvent(%s) error = %v", ev.Status.State, err)
		}
	}

	for _, to := range []agentwire.TaskState{
		agentwire.TaskStateWorking,
		agentwire.TaskStateCompleted,
		agentwire.TaskStateFailed,
		agentwire.TaskStateCanceled,
	} {
		if _, err := m.ApplyEvent(ctx, statusEvent(tk, to, false)); !errors.Is(err, agentwire.ErrInvalidTransition) {
			t.Errorf("ApplyEvent(canceled -> %s) error = %v, want %v", to, err, agentwire.ErrInvalidTransition)
		}
	}
}

func TestManager_ApplyEventPreservesStatusMessage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t)
	tk := submitTask(t, m)

	if _, err := m.ApplyEvent(ctx, statusEvent(tk, agentwire.TaskStateWorking, false)); err != nil {
		t.Fatalf("ApplyEvent(working) error = %v", err)
	}

	prompt := agentwire.NewAgentMessage("how many dice?")
	ev := statusEvent(tk, agentwire.TaskStateInputRequired, false)
	ev.Status = agentwire.NewTaskStatus(agentwire.TaskStateInputRequired, prompt)
	if _, err := m.ApplyEvent(ctx, ev); err != nil {
		t.Fatalf("ApplyEvent(input-required) error = %v", err)
	}

	got, err := m.ApplyEvent(ctx, statusEvent(tk, agentwire.TaskStateWorking, false))
	if err != nil {
		t.Fatalf("ApplyEvent(working) error = %v", err)
	}

	var found bool
	for _, msg := range got.History {
		if msg.MessageID == prompt.MessageID {
			found = true
		}
	}
	if !found {
		t.Error("input-required prompt missing from history after the next transition")
	}
}

func TestManager_ApplyArtifactUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t)
	tk := submitTask(t, m)

	if _, err := m.ApplyEvent(ctx, statusEvent(tk, agentwire.TaskStateWorking, false)); err != nil {
		t.Fatalf("ApplyEvent(working) error = %v", err)
	}

	first := &agentwire.TaskArtifactUpdateEvent{
		Kind:      agentwire.ArtifactUpdateEventKind,
		TaskID:    tk.ID,
		ContextID: tk.ContextID,
		Artifact: &agentwire.Artifact{
			ArtifactID: "result",
			Parts:      agentwire.Parts{agentwire.NewTextPart("rolled ")},
		},
	}
	got, err := m.ApplyEvent(ctx, first)
	if err != nil {
		t.Fatalf("ApplyEvent(artifact) error = %v", err)
	}
	if len(got.Artifacts) != 1 {
		t.Fatalf("artifacts = %d, want 1", len(got.Artifacts))
	}

	// Appending extends the existing artifact's parts.
	second := &agentwire.TaskArtifactUpdateEvent{
		Kind:      agentwire.ArtifactUpdateEventKind,
		TaskID:    tk.ID,
		ContextID: tk.ContextID,
		Artifact: &agentwire.Artifact{
			ArtifactID: "result",
			Parts:      agentwire.Parts{agentwire.NewTextPart("a 17")},
		},
		Append:    true,
		LastChunk: true,
	}
	got, err = m.ApplyEvent(ctx, second)
	if err != nil {
		t.Fatalf("ApplyEvent(artifact append) error = %v", err)
	}
	if len(got.Artifacts) != 1 {
		t.Fatalf("artifacts after append = %d, want 1", len(got.Artifacts))
	}
	if text := agentwire.ArtifactText(got.Artifacts[0]); text != "rolled a 17" {
		t.Errorf("artifact text = %q, want %q", text, "rolled a 17")
	}

	// A different artifact id adds a second artifact.
	third := &agentwire.TaskArtifactUpdateEvent{
		Kind:      agentwire.ArtifactUpdateEventKind,
		TaskID:    tk.ID,
		ContextID: tk.ContextID,
		Artifact: &agentwire.Artifact{
			ArtifactID: "log",
			Parts:      agentwire.Parts{agentwire.NewTextPart("d20: 17")},
		},
	}
	got, err = m.ApplyEvent(ctx, third)
	if err != nil {
		t.Fatalf("ApplyEvent(second artifact) error = %v", err)
	}
	if len(got.Artifacts) != 2 {
		t.Errorf("artifacts = %d, want 2", len(got.Artifacts))
	}
}

func TestManager_ApplyAgentMessageAppendsHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t)
	tk := submitTask(t, m)

	reply := agentwire.NewAgentMessage("working on it")
	reply.TaskID = tk.ID
	reply.ContextID = tk.ContextID

	got, err := m.ApplyEvent(ctx, reply)
	if err != nil {
		t.Fatalf("ApplyEvent(message) error = %v", err)
	}
	if len(got.History) != 2 {
		t.Errorf("history length = %d, want 2", len(got.History))
	}
}

func TestManager_GetTrimsHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t)
	tk := submitTask(t, m)

	for i := 0; i < 5; i++ {
		reply := agentwire.NewAgentMessage("update")
		reply.TaskID = tk.ID
		if _, err := m.ApplyEvent(ctx, reply); err != nil {
			t.Fatalf("ApplyEvent(message) error = %v", err)
		}
	}

	got, err := m.Get(ctx, tk.ID, 2)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.History) != 2 {
		t.Errorf("trimmed history length = %d, want 2", len(got.History))
	}

	full, err := m.Get(ctx, tk.ID, 0)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(full.History) != 6 {
		t.Errorf("full history length = %d, want 6", len(full.History))
	}
}

func TestManager_CancelableState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t)
	tk := submitTask(t, m)

	if _, err := m.CancelableState(ctx, tk.ID); err != nil {
		t.Errorf("CancelableState() of submitted task error = %v", err)
	}

	if _, err := m.ApplyEvent(ctx, statusEvent(tk, agentwire.TaskStateWorking, false)); err != nil {
		t.Fatalf("ApplyEvent(working) error = %v", err)
	}
	if _, err := m.ApplyEvent(ctx, statusEvent(tk, agentwire.TaskStateCompleted, true)); err != nil {
		t.Fatalf("ApplyEvent(completed) error = %v", err)
	}

	if _, err := m.CancelableState(ctx, tk.ID); !errors.Is(err, agentwire.ErrTaskNotCancelable) {
		t.Errorf("CancelableState() of completed task error = %v, want %v", err, agentwire.ErrTaskNotCancelable)
	}

	if _, err := m.CancelableState(ctx, "no-such-task"); !errors.Is(err, agentwire.ErrTaskNotFound) {
		t.Errorf("CancelableState() of unknown task error = %v, want %v", err, agentwire.ErrTaskNotFound)
	}
}

func TestManager_List(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t)

	msg := agentwire.NewUserMessage("first")
	msg.ContextID = "ctx-a"
	if _, err := m.Upsert(ctx, msg); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	msg = agentwire.NewUserMessage("second")
	msg.ContextID = "ctx-b"
	if _, err := m.Upsert(ctx, msg); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	all, err := m.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List() returned %d tasks, want 2", len(all))
	}

	filtered, err := m.List(ctx, "ctx-a", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(filtered) != 1 || filtered[0].ContextID != "ctx-a" {
		t.Errorf("List(ctx-a) = %+v, want one task in ctx-a", filtered)
	}
}
