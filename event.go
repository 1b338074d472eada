// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Event is anything a server may deliver on an update stream: a task
// snapshot, a message, or one of the two update events. Consumers
// dispatch on EventKind.
type Event interface {
	// EventKind returns the kind discriminator of the event.
	EventKind() string
	// EventTaskID returns the task id the event belongs to, or empty
	// for messages not bound to a task.
	EventTaskID() string
}

var (
	_ Event = (*Task)(nil)
	_ Event = (*Message)(nil)
	_ Event = (*TaskStatusUpdateEvent)(nil)
	_ Event = (*TaskArtifactUpdateEvent)(nil)
)

func (t *Task) EventKind() string   { return TaskEventKind }
func (t *Task) EventTaskID() string { return t.ID }

func (m *Message) EventKind() string   { return MessageEventKind }
func (m *Message) EventTaskID() string { return m.TaskID }

func (e *TaskStatusUpdateEvent) EventKind() string   { return StatusUpdateEventKind }
func (e *TaskStatusUpdateEvent) EventTaskID() string { return e.TaskID }

func (e *TaskArtifactUpdateEvent) EventKind() string   { return ArtifactUpdateEventKind }
func (e *TaskArtifactUpdateEvent) EventTaskID() string { return e.TaskID }

// UnmarshalEvent decodes raw JSON into the event type named by its
// kind discriminator.
func UnmarshalEvent(data jsontext.Value) (Event, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("probe event kind: %w", err)
	}

	var event Event
	switch probe.Kind {
	case TaskEventKind:
		event = &Task{}
	case MessageEventKind:
		event = &Message{}
	case StatusUpdateEventKind:
		event = &TaskStatusUpdateEvent{}
	case ArtifactUpdateEventKind:
		event = &TaskArtifactUpdateEvent{}
	default:
		return nil, fmt.Errorf("unknown event kind %q", probe.Kind)
	}
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", probe.Kind, err)
	}
	return event, nil
}

// IsFinalEvent reports whether an event ends a task's observable
// lifecycle: a status update with final set, a standalone message
// result, or a task snapshot already in a terminal state.
func IsFinalEvent(event Event) bool {
	switch e := event.(type) {
	case *TaskStatusUpdateEvent:
		return e.Final
	case *Message:
		return true
	case *Task:
		return e.Status.State.Terminal()
	default:
		return false
	}
}
