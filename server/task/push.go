// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/agentwire/agentwire"
)

// notificationTokenHeader carries the caller-supplied token back on
// every webhook delivery so receivers can correlate and authenticate.
const notificationTokenHeader = "X-A2A-Notification-Token"

// PushConfigStore keeps the webhook registration of each task.
type PushConfigStore interface {
	// Set registers or replaces the webhook config for a task.
	Set(ctx context.Context, taskID string, config *agentwire.PushNotificationConfig) error
	// Get returns the webhook config for a task, or ErrTaskNotFound.
	Get(ctx context.Context, taskID string) (*agentwire.PushNotificationConfig, error)
	// Delete removes the webhook config for a task, if any.
	Delete(ctx context.Context, taskID string) error
}

// InMemoryPushConfigStore is a PushConfigStore backed by a map.
type InMemoryPushConfigStore struct {
	mu      sync.RWMutex
	configs map[string]*agentwire.PushNotificationConfig
}

var _ PushConfigStore = (*InMemoryPushConfigStore)(nil)

// NewInMemoryPushConfigStore creates an empty config store.
func NewInMemoryPushConfigStore() *InMemoryPushConfigStore {
	return &InMemoryPushConfigStore{
		configs: make(map[string]*agentwire.PushNotificationConfig),
	}
}

// Set registers or replaces the webhook config for a task.
func (s *InMemoryPushConfigStore) Set(ctx context.Context, taskID string, config *agentwire.PushNotificationConfig) error {
	if taskID == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	if config == nil {
		return fmt.Errorf("push notification config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[taskID] = config
	return nil
}

// Get returns the webhook config for a task.
func (s *InMemoryPushConfigStore) Get(ctx context.Context, taskID string) (*agentwire.PushNotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	config, ok := s.configs[taskID]
	if !ok {
		return nil, agentwire.ErrTaskNotFound.WithMessage(
			"no push notification config for task %s", taskID)
	}
	return config, nil
}

// Delete removes the webhook config for a task.
func (s *InMemoryPushConfigStore) Delete(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, taskID)
	return nil
}

// PushSender delivers task snapshots to registered webhooks over HTTP
// POST. When a signing key is configured each delivery carries a short
// lived JWT in the Authorization header so receivers can verify the
// sender.
type PushSender struct {
	client     *http.Client
	store      PushConfigStore
	signingKey jwk.Key
	issuer     string
	logger     *slog.Logger
}

// PushSenderConfig configures a PushSender.
type PushSenderConfig struct {
	// Client is the HTTP client for deliveries. Nil means a client
	// with a 30 second timeout.
	Client *http.Client
	// Store resolves webhook registrations by task id. Required.
	Store PushConfigStore
	// SigningKey optionally signs deliveries with RS256.
	SigningKey jwk.Key
	// Issuer is the iss claim of signed deliveries.
	Issuer string
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// NewPushSender creates a sender over the given config store.
func NewPushSender(config PushSenderConfig) (*PushSender, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("push config store cannot be nil")
	}
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PushSender{
		client:     client,
		store:      config.Store,
		signingKey: config.SigningKey,
		issuer:     config.Issuer,
		logger:     logger,
	}, nil
}

// Notify delivers the current task snapshot to the task's registered
// webhook. Tasks without a registration are skipped silently; delivery
// failures are logged, not returned, so a broken webhook never affects
// task processing.
func (s *PushSender) Notify(ctx context.Context, t *agentwire.Task) {
	if t == nil {
		return
	}

	config, err := s.store.Get(ctx, t.ID)
	if err != nil {
		return
	}

	if err := s.deliver(ctx, t, config); err != nil {
		s.logger.WarnContext(ctx, "push notification delivery failed",
			slog.String("task_id", t.ID),
			slog.String("url", config.URL),
			slog.Any("error", err))
		return
	}
	s.logger.DebugContext(ctx, "push notification sent",
		slog.String("task_id", t.ID),
		slog.String("url", config.URL))
}

func (s *PushSender) deliver(ctx context.Context, t *agentwire.Task, config *agentwire.PushNotificationConfig) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if config.Token != "" {
		req.Header.Set(notificationTokenHeader, config.Token)
	}

	if s.signingKey != nil {
		signed, err := s.signDelivery(t.ID)
		if err != nil {
			return fmt.Errorf("sign delivery: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+string(signed))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}

func (s *PushSender) signDelivery(taskID string) ([]byte, error) {
	now := time.Now()
	builder := jwt.NewBuilder().
		IssuedAt(now).
		Expiration(now.Add(5 * time.Minute)).
		Claim("taskId", taskID)
	if s.issuer != "" {
		builder = builder.Issuer(s.issuer)
	}
	token, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return jwt.Sign(token, jwt.WithKey(jwa.RS256(), s.signingKey))
}
