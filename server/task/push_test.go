// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/agentwire/agentwire"
)

func TestInMemoryPushConfigStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryPushConfigStore()

	if _, err := s.Get(ctx, "task-1"); !errors.Is(err, agentwire.ErrTaskNotFound) {
		t.Errorf("Get() of unregistered task error = %v, want %v", err, agentwire.ErrTaskNotFound)
	}

	config := &agentwire.PushNotificationConfig{URL: "https://hooks.example.com/task-1"}
	if err := s.Set(ctx, "task-1", config); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := s.Get(ctx, "task-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.URL != config.URL {
		t.Errorf("Get() url = %q, want %q", got.URL, config.URL)
	}

	if err := s.Set(ctx, "task-1", &agentwire.PushNotificationConfig{}); err == nil {
		t.Error("Set() of config without url succeeded, want error")
	}

	if err := s.Delete(ctx, "task-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "task-1"); !errors.Is(err, agentwire.ErrTaskNotFound) {
		t.Errorf("Get() after Delete() error = %v, want %v", err, agentwire.ErrTaskNotFound)
	}
}

func TestPushSender_Notify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	received := make(chan *agentwire.Task, 1)
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(notificationTokenHeader)
		body, _ := io.ReadAll(r.Body)
		var tk agentwire.Task
		if err := json.Unmarshal(body, &tk); err != nil {
			t.Errorf("webhook body did not decode: %v", err)
		}
		received <- &tk
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store := NewInMemoryPushConfigStore()
	tk := newStoredTask(t, "ctx-1")
	if err := store.Set(ctx, tk.ID, &agentwire.PushNotificationConfig{
		URL:   srv.URL,
		Token: "correlate-me",
	}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	sender, err := NewPushSender(PushSenderConfig{Store: store})
	if err != nil {
		t.Fatalf("NewPushSender() error = %v", err)
	}

	sender.Notify(ctx, tk)

	select {
	case got := <-received:
		if got.ID != tk.ID {
			t.Errorf("webhook received task %s, want %s", got.ID, tk.ID)
		}
	default:
		t.Fatal("webhook not called")
	}
	if gotToken != "correlate-me" {
		t.Errorf("token header = %q, want %q", gotToken, "correlate-me")
	}
}

func TestPushSender_NotifySkipsUnregisteredTask(t *testing.T) {
	t.Parallel()

	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	sender, err := NewPushSender(PushSenderConfig{Store: NewInMemoryPushConfigStore()})
	if err != nil {
		t.Fatalf("NewPushSender() error = %v", err)
	}

	sender.Notify(context.Background(), newStoredTask(t, "ctx-1"))
	if called {
		t.Error("webhook called for a task with no registration")
	}
}

func TestPushSender_SignsDeliveries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	rawKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey() error = %v", err)
	}
	signingKey, err := jwk.Import(rawKey)
	if err != nil {
		t.Fatalf("jwk.Import() error = %v", err)
	}
	verifyKey, err := jwk.Import(rawKey.Public())
	if err != nil {
		t.Fatalf("jwk.Import() error = %v", err)
	}

	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := NewInMemoryPushConfigStore()
	tk := newStoredTask(t, "ctx-1")
	if err := store.Set(ctx, tk.ID, &agentwire.PushNotificationConfig{URL: srv.URL}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	sender, err := NewPushSender(PushSenderConfig{
		Store:      store,
		SigningKey: signingKey,
		Issuer:     "dicebot",
	})
	if err != nil {
		t.Fatalf("NewPushSender() error = %v", err)
	}

	sender.Notify(ctx, tk)

	raw, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		t.Fatalf("Authorization header = %q, want a bearer token", authHeader)
	}

	token, err := jwt.Parse([]byte(raw), jwt.WithKey(jwa.RS256(), verifyKey))
	if err != nil {
		t.Fatalf("jwt.Parse() error = %v", err)
	}

	var taskID string
	if err := token.Get("taskId", &taskID); err != nil {
		t.Fatalf("token missing taskId claim: %v", err)
	}
	if taskID != tk.ID {
		t.Errorf("taskId claim = %q, want %q", taskID, tk.ID)
	}
	if issuer, ok := token.Issuer(); !ok || issuer != "dicebot" {
		t.Errorf("issuer = %q, want %q", issuer, "dicebot")
	}
}
