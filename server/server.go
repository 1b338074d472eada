// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package server assembles the protocol handler, task manager and
// event queues into a runnable HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-json-experiment/json"
	"golang.org/x/sync/errgroup"

	"github.com/agentwire/agentwire"
	"github.com/agentwire/agentwire/server/event"
	"github.com/agentwire/agentwire/server/execution"
	"github.com/agentwire/agentwire/server/handler"
	"github.com/agentwire/agentwire/server/task"
)

const (
	// DefaultAddress is the listen address used when none is configured.
	DefaultAddress = ":8080"

	// DefaultShutdownTimeout bounds graceful shutdown of in-flight requests.
	DefaultShutdownTimeout = 10 * time.Second
)

// Server hosts an agent behind the JSON-RPC endpoint and the agent
// card discovery paths.
type Server struct {
	card     *agentwire.AgentCard
	handler  *handler.Handler
	manager  *task.Manager
	queues   event.Manager
	watchdog *task.Watchdog
	logger   *slog.Logger

	addr            string
	rpcPath         string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	sendTimeout     time.Duration
	idleTimeout     time.Duration
	sweepInterval   time.Duration
	queueSize       int
	store           task.Store
	pushStore       task.PushConfigStore
	pushSender      *task.PushSender
	enableWatchdog  bool

	httpServer *http.Server
}

// New builds a Server around the given agent card and executor. The
// defaults use an in-memory task store and event queues; options
// override storage, timeouts and observability.
func New(card *agentwire.AgentCard, executor execution.AgentExecutor, opts ...Option) (*Server, error) {
	if card == nil {
		return nil, fmt.Errorf("agent card cannot be nil")
	}
	if executor == nil {
		return nil, fmt.Errorf("agent executor cannot be nil")
	}

	s := &Server{
		card:    card,
		addr:    DefaultAddress,
		rpcPath: agentwire.DefaultRPCPath,
		logger:  slog.Default(),

		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = task.NewInMemoryStore()
	}
	if s.pushStore == nil && card.Capabilities.PushNotifications {
		s.pushStore = task.NewInMemoryPushConfigStore()
	}
	if s.pushSender == nil && s.pushStore != nil {
		sender, err := task.NewPushSender(task.PushSenderConfig{
			Store:  s.pushStore,
			Logger: s.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build push sender: %w", err)
		}
		s.pushSender = sender
	}

	manager, err := task.NewManager(s.store, s.logger)
	if err != nil {
		return nil, fmt.Errorf("build task manager: %w", err)
	}
	s.manager = manager
	s.queues = event.NewInMemoryManager(s.queueSize)

	h, err := handler.New(handler.Config{
		Card:        card,
		Manager:     s.manager,
		Queues:      s.queues,
		Executor:    executor,
		PushStore:   s.pushStore,
		PushSender:  s.pushSender,
		SendTimeout: s.sendTimeout,
		Logger:      s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.handler = h

	if s.enableWatchdog {
		wd, err := task.NewWatchdog(s.manager, s.queues, s.idleTimeout, s.sweepInterval, s.logger)
		if err != nil {
			return nil, fmt.Errorf("build watchdog: %w", err)
		}
		s.watchdog = wd
	}

	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.routes(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}
	return s, nil
}

// Handler returns the protocol handler, mostly for tests that drive
// operations directly.
func (s *Server) Handler() *handler.Handler { return s.handler }

// Manager returns the task manager backing the server.
func (s *Server) Manager() *task.Manager { return s.manager }

// routes mounts the RPC endpoint and the card discovery paths. The
// card is served at both the current well-known path and the pre-0.3
// agent.json location.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+agentwire.AgentCardWellKnownPath, s.serveCard)
	mux.HandleFunc("GET "+agentwire.AgentCardLegacyPath, s.serveCard)
	mux.Handle("POST "+s.rpcPath, s.handler)
	return mux
}

func (s *Server) serveCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.MarshalWrite(w, s.card); err != nil {
		s.logger.ErrorContext(r.Context(), "encode agent card", slog.Any("error", err))
	}
}

// ServeHTTP implements http.Handler so the server can be mounted in a
// larger mux or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// Run listens on the configured address and serves until ctx is
// canceled, then shuts down gracefully. The watchdog, when enabled,
// runs alongside the listener and stops with it.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.InfoContext(ctx, "server listening",
			slog.String("addr", ln.Addr().String()),
			slog.String("agent", s.card.Name))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	if s.watchdog != nil {
		g.Go(func() error {
			return s.watchdog.Run(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := s.queues.CloseAll(); err != nil {
			s.logger.WarnContext(shutdownCtx, "close event queues", slog.Any("error", err))
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
