// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"fmt"
	"time"
)

// TaskState is the lifecycle state of a task.
type TaskState string

// Task lifecycle states. The legal transitions are
//
//	submitted -> working -> {input-required <-> working} -> {completed | canceled | failed}
//
// with canceled and failed reachable from any non-terminal state.
// Unknown is a sentinel for a task whose id is not found or whose
// state could not be determined; it is never a real progression step.
const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateFailed        TaskState = "failed"
	TaskStateUnknown       TaskState = "unknown"
)

// Terminal reports whether the state permits no further transitions.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed:
		return true
	default:
		return false
	}
}

// Event kind discriminators carried in the "kind" field of every
// streamable object.
const (
	TaskEventKind           = "task"
	MessageEventKind        = "message"
	StatusUpdateEventKind   = "status-update"
	ArtifactUpdateEventKind = "artifact-update"
)

// Role identifies the sender of a message.
type Role string

// Message roles.
const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is one turn of conversation between user and agent.
// Messages are immutable once constructed.
type Message struct {
	// Kind is always MessageEventKind.
	Kind string `json:"kind"`
	// MessageID is a unique, caller-generated identifier.
	MessageID string `json:"messageId"`
	// Role is the sender's role.
	Role Role `json:"role"`
	// Parts is the ordered message content, at least one element.
	Parts Parts `json:"parts"`
	// TaskID optionally references the task this message belongs to.
	TaskID string `json:"taskId,omitzero"`
	// ContextID groups related tasks and messages.
	ContextID string `json:"contextId,omitzero"`
	// ReferenceTaskIDs lists tasks referenced as context by this message.
	ReferenceTaskIDs []string `json:"referenceTaskIds,omitzero"`
	// Metadata is opaque extension data passed through unchanged.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate reports whether the message is well formed enough to send.
func (m *Message) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("message id cannot be empty")
	}
	if m.Role != RoleUser && m.Role != RoleAgent {
		return fmt.Errorf("message role must be %q or %q, got %q", RoleUser, RoleAgent, m.Role)
	}
	if len(m.Parts) == 0 {
		return fmt.Errorf("message must contain at least one part")
	}
	return m.Parts.Validate()
}

// Artifact is a named output (or output fragment) of a task.
type Artifact struct {
	// ArtifactID identifies the artifact within its task.
	ArtifactID string `json:"artifactId"`
	// Name is an optional human readable name.
	Name string `json:"name,omitzero"`
	// Description optionally describes the artifact.
	Description string `json:"description,omitzero"`
	// Parts is the ordered artifact content.
	Parts Parts `json:"parts"`
	// Index orders multiple chunks of one logical artifact.
	Index int `json:"index,omitzero"`
	// Metadata is opaque extension data.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate reports whether the artifact is well formed.
func (a *Artifact) Validate() error {
	if a.ArtifactID == "" {
		return fmt.Errorf("artifact id cannot be empty")
	}
	if len(a.Parts) == 0 {
		return fmt.Errorf("artifact must contain at least one part")
	}
	return a.Parts.Validate()
}

// TaskStatus is a task state with an optional accompanying message.
type TaskStatus struct {
	// State is the current lifecycle state.
	State TaskState `json:"state"`
	// Message optionally carries detail for the client, e.g. an
	// input-required prompt or a failure description.
	Message *Message `json:"message,omitzero"`
	// Timestamp is the ISO 8601 time the status was recorded.
	Timestamp string `json:"timestamp,omitzero"`
}

// NewTaskStatus creates a TaskStatus stamped with the current time.
func NewTaskStatus(state TaskState, message *Message) TaskStatus {
	return TaskStatus{
		State:     state,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// Task is the central tracked entity: a unit of work progressing
// through the lifecycle state machine, accumulating message history
// and artifacts. The id is immutable after creation.
type Task struct {
	// Kind is always TaskEventKind.
	Kind string `json:"kind"`
	// ID is the stable task identifier.
	ID string `json:"id"`
	// ContextID groups related tasks and messages.
	ContextID string `json:"contextId"`
	// Status is the current task status.
	Status TaskStatus `json:"status"`
	// History is the append-only ordered message history.
	History []*Message `json:"history,omitzero"`
	// Artifacts are the outputs accumulated so far, merged by artifactId.
	Artifacts []*Artifact `json:"artifacts,omitzero"`
	// Metadata is opaque extension data.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate reports whether the task is well formed.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	if t.ContextID == "" {
		return fmt.Errorf("task context id cannot be empty")
	}
	return nil
}

// Artifact returns the artifact with the given id, or nil.
func (t *Task) Artifact(artifactID string) *Artifact {
	for _, a := range t.Artifacts {
		if a.ArtifactID == artifactID {
			return a
		}
	}
	return nil
}

// TaskStatusUpdateEvent reports a task status change to streaming
// consumers. Final marks the terminal event of the task's observable
// lifecycle; at most one final event is published per task.
type TaskStatusUpdateEvent struct {
	// Kind is always StatusUpdateEventKind.
	Kind string `json:"kind"`
	// TaskID identifies the task being updated.
	TaskID string `json:"taskId"`
	// ContextID is the task's context id.
	ContextID string `json:"contextId"`
	// Status is the new status.
	Status TaskStatus `json:"status"`
	// Final indicates the end of the event stream for this task.
	Final bool `json:"final"`
	// Metadata is opaque extension data.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// TaskArtifactUpdateEvent reports a new or extended artifact to
// streaming consumers.
type TaskArtifactUpdateEvent struct {
	// Kind is always ArtifactUpdateEventKind.
	Kind string `json:"kind"`
	// TaskID identifies the task that produced the artifact.
	TaskID string `json:"taskId"`
	// ContextID is the task's context id.
	ContextID string `json:"contextId"`
	// Artifact is the artifact data.
	Artifact *Artifact `json:"artifact"`
	// Append extends the parts of an existing artifact with the same
	// id instead of replacing it.
	Append bool `json:"append,omitzero"`
	// LastChunk marks the completion of a chunked artifact.
	LastChunk bool `json:"lastChunk,omitzero"`
	// Metadata is opaque extension data.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// AgentProvider identifies the service provider of an agent.
type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url,omitzero"`
}

// AgentCapabilities declares the optional protocol features an agent supports.
type AgentCapabilities struct {
	// Streaming is true if the agent supports message/stream over SSE.
	Streaming bool `json:"streaming,omitzero"`
	// PushNotifications is true if the agent can notify clients of
	// task updates via webhook.
	PushNotifications bool `json:"pushNotifications,omitzero"`
	// StateTransitionHistory is true if the agent exposes status
	// change history for tasks.
	StateTransitionHistory bool `json:"stateTransitionHistory,omitzero"`
}

// AgentSkill is a unit of capability an agent can perform.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitzero"`
	Tags        []string `json:"tags,omitzero"`
	Examples    []string `json:"examples,omitzero"`
	InputModes  []string `json:"inputModes,omitzero"`
	OutputModes []string `json:"outputModes,omitzero"`
}

// AgentCard is the static capability descriptor published by a server
// at the well-known card path. It is immutable once served; clients
// cache it.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitzero"`
	URL                string            `json:"url"`
	Version            string            `json:"version"`
	Provider           *AgentProvider    `json:"provider,omitzero"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	DefaultInputModes  []string          `json:"defaultInputModes,omitzero"`
	DefaultOutputModes []string          `json:"defaultOutputModes,omitzero"`
	Skills             []AgentSkill      `json:"skills"`
	// SecuritySchemes is opaque pass-through material; this module
	// does not interpret authentication configuration.
	SecuritySchemes map[string]any `json:"securitySchemes,omitzero"`
}

// Validate reports whether the card carries its required fields.
func (c *AgentCard) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("agent card name cannot be empty")
	}
	if c.URL == "" {
		return fmt.Errorf("agent card url cannot be empty")
	}
	if c.Version == "" {
		return fmt.Errorf("agent card version cannot be empty")
	}
	return nil
}

// MessageSendConfiguration tunes a message/send request.
type MessageSendConfiguration struct {
	// AcceptedOutputModes lists media types the client accepts.
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitzero"`
	// Blocking requests unary (wait-for-terminal) semantics.
	Blocking bool `json:"blocking,omitzero"`
	// HistoryLength limits how many recent messages are returned.
	HistoryLength int `json:"historyLength,omitzero"`
	// PushNotificationConfig registers a webhook for task updates.
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig,omitzero"`
}

// MessageSendParams are the parameters of message/send and message/stream.
type MessageSendParams struct {
	// Message is the message being sent. Required.
	Message *Message `json:"message"`
	// Configuration optionally tunes the request.
	Configuration *MessageSendConfiguration `json:"configuration,omitzero"`
	// Metadata is opaque extension data.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// TaskIDParams carry a bare task id, used by tasks/cancel and tasks/resubscribe.
type TaskIDParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// TaskQueryParams are the parameters of tasks/get.
type TaskQueryParams struct {
	ID string `json:"id"`
	// HistoryLength limits how many recent messages are returned; zero
	// returns the full history.
	HistoryLength int            `json:"historyLength,omitzero"`
	Metadata      map[string]any `json:"metadata,omitzero"`
}

// TaskListParams are the parameters of tasks/list. With ID set the
// result is that task's history; otherwise all tasks, optionally
// filtered by context.
type TaskListParams struct {
	ID        string `json:"id,omitzero"`
	ContextID string `json:"contextId,omitzero"`
	Limit     int    `json:"limit,omitzero"`
}

// PushNotificationConfig describes a webhook endpoint for task updates.
// Token and Authentication are opaque pass-through material.
type PushNotificationConfig struct {
	ID    string `json:"id,omitzero"`
	URL   string `json:"url"`
	Token string `json:"token,omitzero"`
	// Authentication carries opaque scheme data the receiver understands.
	Authentication map[string]any `json:"authentication,omitzero"`
}

// Validate reports whether the config carries its required fields.
func (c *PushNotificationConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("push notification config url cannot be empty")
	}
	return nil
}

// TaskPushNotificationConfig binds a push config to a task, used by
// tasks/pushNotificationConfig/set and .../get.
type TaskPushNotificationConfig struct {
	TaskID                 string                  `json:"taskId"`
	PushNotificationConfig *PushNotificationConfig `json:"pushNotificationConfig"`
}
