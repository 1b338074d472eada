// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"strings"

	"github.com/google/uuid"
)

// NewUserMessage creates a user-role message with a single text part
// and a generated message id.
func NewUserMessage(text string) *Message {
	return &Message{
		Kind:      MessageEventKind,
		MessageID: uuid.NewString(),
		Role:      RoleUser,
		Parts:     Parts{NewTextPart(text)},
	}
}

// NewAgentMessage creates an agent-role message with a single text
// part and a generated message id.
func NewAgentMessage(text string) *Message {
	return &Message{
		Kind:      MessageEventKind,
		MessageID: uuid.NewString(),
		Role:      RoleAgent,
		Parts:     Parts{NewTextPart(text)},
	}
}

// MessageText concatenates the text parts of a message, one per line.
// Non-text parts are skipped.
func MessageText(m *Message) string {
	if m == nil {
		return ""
	}
	var texts []string
	for _, part := range m.Parts {
		if tp, ok := part.(*TextPart); ok {
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// ArtifactText concatenates the text parts of an artifact in order.
func ArtifactText(a *Artifact) string {
	if a == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range a.Parts {
		if tp, ok := part.(*TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// NewTextArtifact creates an artifact holding a single text part with
// a generated artifact id.
func NewTextArtifact(name, text string) *Artifact {
	return &Artifact{
		ArtifactID: uuid.NewString(),
		Name:       name,
		Parts:      Parts{NewTextPart(text)},
	}
}

// NewDataArtifact creates an artifact holding a single data part with
// a generated artifact id.
func NewDataArtifact(name string, data map[string]any) *Artifact {
	return &Artifact{
		ArtifactID: uuid.NewString(),
		Name:       name,
		Parts:      Parts{NewDataPart(data)},
	}
}

// NewTask creates a task in the submitted state from its triggering
// message. Missing task and context ids are generated; the message is
// the first history entry.
func NewTask(message *Message) (*Task, error) {
	if err := message.Validate(); err != nil {
		return nil, err
	}

	taskID := message.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	contextID := message.ContextID
	if contextID == "" {
		contextID = uuid.NewString()
	}

	return &Task{
		Kind:      TaskEventKind,
		ID:        taskID,
		ContextID: contextID,
		Status:    NewTaskStatus(TaskStateSubmitted, nil),
		History:   []*Message{message},
	}, nil
}
