// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package execution defines the contract between the protocol server
// and agent business logic.
package execution

import (
	"context"

	"github.com/agentwire/agentwire"
	"github.com/agentwire/agentwire/server/task"
)

// AgentExecutor is implemented by agent authors. The server resolves
// each incoming message to a task, then hands the executor a request
// context and an updater wired to that task's event queue. All
// progress flows through the updater; the executor never touches the
// store or the transport.
//
// Execute runs on its own goroutine. Returning a non-nil error, or
// returning without having published a final update, fails the task.
// Executors should honor ctx, which is canceled when the task is
// canceled or the server shuts down.
type AgentExecutor interface {
	// Execute processes one request through to a final update.
	Execute(ctx context.Context, rc *RequestContext, updater *task.Updater) error

	// Cancel asks the executor to stop the task. It is advisory: the
	// server cancels the Execute context and records the canceled
	// state regardless of what Cancel does. Executors that cannot
	// stop mid-flight may return ErrUnsupportedOperation.
	Cancel(ctx context.Context, rc *RequestContext, updater *task.Updater) error
}

// ExecuteFunc adapts a function to AgentExecutor with an advisory-only
// Cancel.
type ExecuteFunc func(ctx context.Context, rc *RequestContext, updater *task.Updater) error

var _ AgentExecutor = (ExecuteFunc)(nil)

// Execute calls f.
func (f ExecuteFunc) Execute(ctx context.Context, rc *RequestContext, updater *task.Updater) error {
	return f(ctx, rc, updater)
}

// Cancel reports that the executor has no cancel hook of its own.
func (f ExecuteFunc) Cancel(ctx context.Context, rc *RequestContext, updater *task.Updater) error {
	return agentwire.ErrUnsupportedOperation.WithMessage("executor has no cancel hook")
}
