// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package execution

import (
	"maps"
	"time"

	"github.com/agentwire/agentwire"
)

// RequestContext carries everything an executor needs about the
// request it is serving: the triggering message, the task snapshot at
// dispatch time, and request metadata. It is built by the server; the
// executor treats it as read-only.
type RequestContext struct {
	// TaskID identifies the task being executed.
	TaskID string

	// ContextID groups this task with related interactions.
	ContextID string

	// Message is the message that started or continued the task.
	Message *agentwire.Message

	// Task is the task snapshot at dispatch time, including history
	// from earlier turns of an input-required exchange.
	Task *agentwire.Task

	// Metadata carries opaque request metadata.
	Metadata map[string]any

	// CreatedAt is when the request was dispatched.
	CreatedAt time.Time
}

// NewRequestContext builds a request context from the resolved task
// and its triggering message.
func NewRequestContext(t *agentwire.Task, message *agentwire.Message) *RequestContext {
	return &RequestContext{
		TaskID:    t.ID,
		ContextID: t.ContextID,
		Message:   message,
		Task:      t,
		CreatedAt: time.Now(),
	}
}

// WithMetadata merges metadata into the context and returns it.
func (rc *RequestContext) WithMetadata(metadata map[string]any) *RequestContext {
	if len(metadata) == 0 {
		return rc
	}
	if rc.Metadata == nil {
		rc.Metadata = make(map[string]any, len(metadata))
	}
	maps.Copy(rc.Metadata, metadata)
	return rc
}

// UserText returns the concatenated text parts of the triggering
// message.
func (rc *RequestContext) UserText() string {
	return agentwire.MessageText(rc.Message)
}
