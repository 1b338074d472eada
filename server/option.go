// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"log/slog"
	"time"

	"github.com/agentwire/agentwire/server/task"
)

// Option configures a [Server].
type Option func(*Server)

// WithAddress sets the listen address, for example ":9090".
func WithAddress(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithRPCPath moves the JSON-RPC endpoint off the default path.
func WithRPCPath(path string) Option {
	return func(s *Server) {
		s.rpcPath = path
	}
}

// WithLogger sets the [*slog.Logger] used by the server and every
// component it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTaskStore replaces the in-memory task store, typically with a
// [task.DatabaseStore].
func WithTaskStore(store task.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithPushConfigStore replaces the in-memory push config store.
func WithPushConfigStore(store task.PushConfigStore) Option {
	return func(s *Server) {
		s.pushStore = store
	}
}

// WithPushSender replaces the default push sender, for example to
// attach a JWT signing key.
func WithPushSender(sender *task.PushSender) Option {
	return func(s *Server) {
		s.pushSender = sender
	}
}

// WithSendTimeout bounds how long message/send blocks before
// returning the in-flight task snapshot.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.sendTimeout = d
	}
}

// WithQueueSize sets the per-task event queue capacity.
func WithQueueSize(n int) Option {
	return func(s *Server) {
		s.queueSize = n
	}
}

// WithHTTPTimeouts sets the read and write timeouts of the underlying
// http.Server. Write timeouts cut off long-lived streams, so servers
// that stream should leave the write timeout at zero.
func WithHTTPTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithWatchdog enables the idle task watchdog. Zero durations take
// the package defaults.
func WithWatchdog(idleTimeout, sweepInterval time.Duration) Option {
	return func(s *Server) {
		s.enableWatchdog = true
		s.idleTimeout = idleTimeout
		s.sweepInterval = sweepInterval
	}
}
