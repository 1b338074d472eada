// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"

	"github.com/agentwire/agentwire"

	"github.com/agentwire/agentwire/internal/sse"
)

// Stream is a live SSE subscription to a task's events. Read from
// Events until it closes, then check Err.
type Stream struct {
	events chan agentwire.Event
	body   io.Closer
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// Events returns the event channel. It closes when a final event
// arrives, the stream breaks, or the stream is closed.
func (s *Stream) Events() <-chan agentwire.Event { return s.events }

// Err returns why the stream ended. It is nil after a clean end on a
// final event and ErrStreamInterrupted (possibly wrapped) when the
// connection dropped mid-task. Call it only after Events closes.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close tears down the stream early. Reading the remaining events is
// not required.
func (s *Stream) Close() error {
	s.cancel()
	return s.body.Close()
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// SendMessageStream calls message/stream and returns the live event
// stream. The first event is the task snapshot.
func (c *Client) SendMessageStream(ctx context.Context, params *agentwire.MessageSendParams) (*Stream, error) {
	return c.openStream(ctx, agentwire.MethodMessageStream, params)
}

// Resubscribe reattaches to a running task's stream after a drop.
func (c *Client) Resubscribe(ctx context.Context, params *agentwire.TaskIDParams) (*Stream, error) {
	return c.openStream(ctx, agentwire.MethodTasksResubscribe, params)
}

func (c *Client) openStream(ctx context.Context, method string, params any) (*Stream, error) {
	req, err := agentwire.NewRequest(uuid.NewString(), method, params)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	// The stream lives past the dial deadline, so the body is read
	// under a child context the Stream owns.
	streamCtx, cancel := context.WithCancel(ctx)

	httpReq, err := c.newRequest(streamCtx, payload)
	if err != nil {
		cancel()
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		defer cancel()
		defer httpResp.Body.Close()
		return nil, fmt.Errorf("%s: unexpected HTTP status %d", method, httpResp.StatusCode)
	}
	if ct := httpResp.Header.Get("Content-Type"); ct != "text/event-stream" {
		// A JSON body here is a JSON-RPC error the server raised
		// before the stream could start.
		defer cancel()
		defer httpResp.Body.Close()
		var resp agentwire.Response
		if err := json.UnmarshalRead(httpResp.Body, &resp); err == nil && resp.Error != nil {
			return nil, resp.Error
		}
		return nil, fmt.Errorf("%s: unexpected content type %q", method, ct)
	}

	s := &Stream{
		events: make(chan agentwire.Event),
		body:   httpResp.Body,
		cancel: cancel,
	}
	go s.consume(streamCtx, c.logger, httpResp.Body)
	return s, nil
}

// consume reads SSE frames off the response body and forwards the
// decoded events. A frame carrying a JSON-RPC error ends the stream
// with that error; EOF before a final event reports interruption.
func (s *Stream) consume(ctx context.Context, logger *slog.Logger, body io.ReadCloser) {
	defer close(s.events)
	defer body.Close()

	decoder := sse.NewDecoder(body)
	for {
		frame, err := decoder.Decode()
		if err != nil {
			if ctx.Err() != nil {
				s.setErr(ctx.Err())
			} else if errors.Is(err, io.EOF) {
				s.setErr(ErrStreamInterrupted)
			} else {
				s.setErr(fmt.Errorf("%w: %v", ErrStreamInterrupted, err))
			}
			return
		}
		if frame.Data == "" {
			continue
		}

		var resp agentwire.Response
		if err := json.Unmarshal([]byte(frame.Data), &resp); err != nil {
			s.setErr(fmt.Errorf("decode stream frame: %w", err))
			return
		}
		if resp.Error != nil {
			s.setErr(resp.Error)
			return
		}

		event, err := agentwire.UnmarshalEvent(resp.Result)
		if err != nil {
			logger.DebugContext(ctx, "skipping undecodable stream event",
				slog.String("kind", frame.Type),
				slog.Any("error", err))
			continue
		}

		select {
		case s.events <- event:
		case <-ctx.Done():
			s.setErr(ctx.Err())
			return
		}

		if agentwire.IsFinalEvent(event) {
			return
		}
	}
}
