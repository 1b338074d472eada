// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is an HTTP client for agents speaking the JSON-RPC
// protocol: unary calls, SSE streams and agent card discovery.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"

	"github.com/agentwire/agentwire"
)

// DefaultTimeout bounds unary calls when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// Client talks to a single agent endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	headers    http.Header
	timeout    time.Duration
	retry      RetryConfig
	logger     *slog.Logger
}

// New creates a client for the agent's JSON-RPC endpoint URL.
func New(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("endpoint url cannot be empty")
	}
	c := &Client{
		httpClient: http.DefaultClient,
		url:        url,
		headers:    make(http.Header),
		timeout:    DefaultTimeout,
		retry:      DefaultRetryConfig(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromCard resolves the agent card under baseURL and creates a
// client for the endpoint the card advertises.
func NewFromCard(ctx context.Context, baseURL string, opts ...Option) (*Client, *agentwire.AgentCard, error) {
	card, err := ResolveCard(ctx, http.DefaultClient, baseURL)
	if err != nil {
		return nil, nil, err
	}
	c, err := New(card.URL, opts...)
	if err != nil {
		return nil, nil, err
	}
	return c, card, nil
}

// URL returns the endpoint the client talks to.
func (c *Client) URL() string { return c.url }

// SendMessage calls message/send and blocks until the server returns.
// The result is either a final *agentwire.Task snapshot or a direct
// *agentwire.Message reply.
func (c *Client) SendMessage(ctx context.Context, params *agentwire.MessageSendParams) (agentwire.Event, error) {
	resp, err := c.call(ctx, agentwire.MethodMessageSend, params)
	if err != nil {
		return nil, err
	}
	return agentwire.UnmarshalEvent(resp.Result)
}

// GetTask calls tasks/get.
func (c *Client) GetTask(ctx context.Context, params *agentwire.TaskQueryParams) (*agentwire.Task, error) {
	resp, err := c.call(ctx, agentwire.MethodTasksGet, params)
	if err != nil {
		return nil, err
	}
	var t agentwire.Task
	if err := resp.UnmarshalResult(&t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}

// CancelTask calls tasks/cancel and returns the canceled snapshot.
func (c *Client) CancelTask(ctx context.Context, params *agentwire.TaskIDParams) (*agentwire.Task, error) {
	resp, err := c.call(ctx, agentwire.MethodTasksCancel, params)
	if err != nil {
		return nil, err
	}
	var t agentwire.Task
	if err := resp.UnmarshalResult(&t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &t, nil
}

// ListTasks calls tasks/list.
func (c *Client) ListTasks(ctx context.Context, params *agentwire.TaskListParams) ([]*agentwire.Task, error) {
	if params == nil {
		params = &agentwire.TaskListParams{}
	}
	resp, err := c.call(ctx, agentwire.MethodTasksList, params)
	if err != nil {
		return nil, err
	}
	var tasks []*agentwire.Task
	if err := resp.UnmarshalResult(&tasks); err != nil {
		return nil, fmt.Errorf("decode task list: %w", err)
	}
	return tasks, nil
}

// SetPushConfig calls tasks/pushNotificationConfig/set.
func (c *Client) SetPushConfig(ctx context.Context, params *agentwire.TaskPushNotificationConfig) (*agentwire.TaskPushNotificationConfig, error) {
	resp, err := c.call(ctx, agentwire.MethodPushConfigSet, params)
	if err != nil {
		return nil, err
	}
	var config agentwire.TaskPushNotificationConfig
	if err := resp.UnmarshalResult(&config); err != nil {
		return nil, fmt.Errorf("decode push config: %w", err)
	}
	return &config, nil
}

// GetPushConfig calls tasks/pushNotificationConfig/get.
func (c *Client) GetPushConfig(ctx context.Context, params *agentwire.TaskIDParams) (*agentwire.TaskPushNotificationConfig, error) {
	resp, err := c.call(ctx, agentwire.MethodPushConfigGet, params)
	if err != nil {
		return nil, err
	}
	var config agentwire.TaskPushNotificationConfig
	if err := resp.UnmarshalResult(&config); err != nil {
		return nil, fmt.Errorf("decode push config: %w", err)
	}
	return &config, nil
}

// call performs a unary JSON-RPC exchange with retries. Server-side
// errors come back as *agentwire.Error and are never retried.
func (c *Client) call(ctx context.Context, method string, params any) (*agentwire.Response, error) {
	req, err := agentwire.NewRequest(uuid.NewString(), method, params)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var resp *agentwire.Response
	attempts := max(c.retry.MaxAttempts, 1)
	delay := c.retry.InitialDelay

	for attempt := range attempts {
		resp, err = c.roundTrip(ctx, payload)
		if err == nil {
			break
		}
		if !retryable(err) || attempt == attempts-1 {
			return nil, fmt.Errorf("%s: %w", method, err)
		}

		c.logger.DebugContext(ctx, "retrying request",
			slog.String("method", method),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay = min(delay*2, c.retry.MaxDelay)
	}

	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, payload []byte) (*agentwire.Response, error) {
	httpReq, err := c.newRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, httpResp.Body)
		return nil, &httpStatusError{code: httpResp.StatusCode}
	}

	var resp agentwire.Response
	if err := json.UnmarshalRead(httpResp.Body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

func (c *Client) newRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	for key, values := range c.headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

// httpStatusError marks non-200 responses so retry logic can tell
// transient server trouble from hard failures.
type httpStatusError struct {
	code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.code)
}

// retryable reports whether a transport failure is worth retrying:
// connection errors and 429/5xx statuses, but never context
// cancellation or a decoded JSON-RPC response.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.code == http.StatusTooManyRequests || statusErr.code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// url.Error wraps dial and write failures.
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
