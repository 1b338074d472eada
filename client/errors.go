// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package client

import "errors"

var (
	// ErrStreamInterrupted reports a stream that ended before a final
	// event arrived. The task may still be running server-side; callers
	// can resubscribe or poll tasks/get.
	ErrStreamInterrupted = errors.New("stream interrupted before a final event")

	// ErrAgentCardNotFound reports that no agent card could be fetched
	// from either discovery path.
	ErrAgentCardNotFound = errors.New("agent card not found")
)
