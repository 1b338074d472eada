// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package execution

import (
	"testing"

	"github.com/agentwire/agentwire"
)

func TestNewRequestContext(t *testing.T) {
	t.Parallel()

	msg := agentwire.NewUserMessage("roll 2d6")
	tk, err := agentwire.NewTask(msg)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}

	rc := NewRequestContext(tk, msg)
	if rc.TaskID != tk.ID {
		t.Errorf("TaskID = %q, want %q", rc.TaskID, tk.ID)
	}
	if rc.ContextID != tk.ContextID {
		t.Errorf("ContextID = %q, want %q", rc.ContextID, tk.ContextID)
	}
	if rc.Task != tk || rc.Message != msg {
		t.Error("request context does not reference the dispatched task and message")
	}
	if rc.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
	if got := rc.UserText(); got != "roll 2d6" {
		t.Errorf("UserText() = %q, want %q", got, "roll 2d6")
	}
}

func TestRequestContext_WithMetadata(t *testing.T) {
	t.Parallel()

	msg := agentwire.NewUserMessage("hi")
	tk, err := agentwire.NewTask(msg)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}

	rc := NewRequestContext(tk, msg).
		WithMetadata(map[string]any{"trace": "abc"}).
		WithMetadata(map[string]any{"hop": 2})

	if rc.Metadata["trace"] != "abc" || rc.Metadata["hop"] != 2 {
		t.Errorf("Metadata = %+v, want merged trace and hop entries", rc.Metadata)
	}

	if got := NewRequestContext(tk, msg).WithMetadata(nil); got.Metadata != nil {
		t.Errorf("WithMetadata(nil) allocated a map: %+v", got.Metadata)
	}
}
