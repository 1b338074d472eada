// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"testing"
)

func TestNewUserMessage(t *testing.T) {
	t.Parallel()

	m := NewUserMessage("roll a d6")
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if m.Role != RoleUser {
		t.Errorf("role = %s, want %s", m.Role, RoleUser)
	}
	if m.MessageID == "" {
		t.Error("message id not generated")
	}
	if got := MessageText(m); got != "roll a d6" {
		t.Errorf("text = %q, want %q", got, "roll a d6")
	}

	other := NewUserMessage("again")
	if m.MessageID == other.MessageID {
		t.Error("message ids must be unique")
	}
}

func TestMessageText(t *testing.T) {
	t.Parallel()

	m := NewAgentMessage("line one")
	m.Parts = append(m.Parts, NewDataPart(map[string]any{"skipped": true}), NewTextPart("line two"))

	if got, want := MessageText(m), "line one\nline two"; got != want {
		t.Errorf("MessageText() = %q, want %q", got, want)
	}
	if got := MessageText(nil); got != "" {
		t.Errorf("MessageText(nil) = %q, want empty", got)
	}
}

func TestArtifactText(t *testing.T) {
	t.Parallel()

	a := NewTextArtifact("roll", "rolled ")
	a.Parts = append(a.Parts, NewTextPart("a 17"))

	if got, want := ArtifactText(a), "rolled a 17"; got != want {
		t.Errorf("ArtifactText() = %q, want %q", got, want)
	}
	if got := ArtifactText(nil); got != "" {
		t.Errorf("ArtifactText(nil) = %q, want empty", got)
	}
}

func TestNewTask(t *testing.T) {
	t.Parallel()

	t.Run("generates ids", func(t *testing.T) {
		t.Parallel()

		msg := NewUserMessage("roll")
		task, err := NewTask(msg)
		if err != nil {
			t.Fatalf("NewTask() error = %v", err)
		}
		if task.ID == "" || task.ContextID == "" {
			t.Errorf("task ids not generated: %+v", task)
		}
		if task.Status.State != TaskStateSubmitted {
			t.Errorf("state = %s, want %s", task.Status.State, TaskStateSubmitted)
		}
		if len(task.History) != 1 || task.History[0].MessageID != msg.MessageID {
			t.Errorf("history = %+v, want the triggering message", task.History)
		}
	})

	t.Run("keeps caller ids", func(t *testing.T) {
		t.Parallel()

		msg := NewUserMessage("roll")
		msg.TaskID = "t-keep"
		msg.ContextID = "c-keep"

		task, err := NewTask(msg)
		if err != nil {
			t.Fatalf("NewTask() error = %v", err)
		}
		if task.ID != "t-keep" || task.ContextID != "c-keep" {
			t.Errorf("task = %+v, want caller supplied ids", task)
		}
	})

	t.Run("rejects invalid message", func(t *testing.T) {
		t.Parallel()

		if _, err := NewTask(&Message{MessageID: "m1", Role: RoleUser}); err == nil {
			t.Error("NewTask() with empty parts succeeded, want error")
		}
	})
}
