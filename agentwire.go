// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package agentwire provides the data model and wire types for the
// Agent-to-Agent (A2A) protocol: a JSON-RPC based protocol that lets
// independent agent services discover each other's capabilities and
// exchange task-oriented messages, optionally streamed.
//
// The package is transport-agnostic. Server-side building blocks
// (task state machine, event queues, request handler) live under
// server/..., the JSON-RPC client under client.
package agentwire

// Version is the protocol version implemented by this module.
const Version = "0.3.0"

// Well-known paths and endpoints.
const (
	// AgentCardWellKnownPath is the standard path for retrieving an
	// agent's public AgentCard.
	AgentCardWellKnownPath = "/.well-known/agent-card"

	// AgentCardLegacyPath is the pre-0.3 card location. Servers keep
	// serving it so older clients can still resolve the card.
	AgentCardLegacyPath = "/.well-known/agent.json"

	// DefaultRPCPath is the default path of the JSON-RPC endpoint.
	DefaultRPCPath = "/"
)

// A2A RPC method names.
const (
	// MethodMessageSend sends a message and blocks for the terminal task state.
	MethodMessageSend = "message/send"
	// MethodMessageStream sends a message and streams update events.
	MethodMessageStream = "message/stream"
	// MethodTasksGet returns a task snapshot by id.
	MethodTasksGet = "tasks/get"
	// MethodTasksCancel requests cancellation of a task.
	MethodTasksCancel = "tasks/cancel"
	// MethodTasksList lists known tasks, optionally filtered by id or context.
	MethodTasksList = "tasks/list"
	// MethodTasksResubscribe reattaches a streaming consumer to a live task.
	MethodTasksResubscribe = "tasks/resubscribe"
	// MethodPushConfigSet stores a push notification config for a task.
	MethodPushConfigSet = "tasks/pushNotificationConfig/set"
	// MethodPushConfigGet returns the push notification config of a task.
	MethodPushConfigGet = "tasks/pushNotificationConfig/get"
)

// Legacy method aliases kept for compatibility with pre-0.3 clients.
const (
	MethodLegacyTasksSend          = "tasks/send"
	MethodLegacyTasksSendSubscribe = "tasks/sendSubscribe"
	MethodLegacyMessagePending     = "message/pending"
)

// CanonicalMethod maps legacy method aliases onto their current names.
// Unknown methods are returned unchanged.
func CanonicalMethod(method string) string {
	switch method {
	case MethodLegacyTasksSend:
		return MethodMessageSend
	case MethodLegacyTasksSendSubscribe:
		return MethodMessageStream
	case MethodLegacyMessagePending:
		return MethodTasksCancel
	default:
		return method
	}
}
