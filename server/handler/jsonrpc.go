// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-json-experiment/json"

	"github.com/agentwire/agentwire"
)

// ServeHTTP serves the JSON-RPC endpoint: one POST per request, with
// message/stream and tasks/resubscribe answered as SSE streams and
// every other method as a single JSON response. Legacy method aliases
// are accepted and dispatched to their current handlers.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req agentwire.Request
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		h.writeResponse(w, agentwire.NewErrorResponse(nil, agentwire.ErrParse.WithMessage("%s", err.Error())))
		return
	}
	if err := req.Validate(); err != nil {
		h.writeResponse(w, agentwire.NewErrorResponse(req.ID, err))
		return
	}

	ctx := r.Context()
	method := agentwire.CanonicalMethod(req.Method)

	switch method {
	case agentwire.MethodMessageStream, agentwire.MethodTasksResubscribe:
		h.serveStream(ctx, w, &req, method)
	default:
		h.serveUnary(ctx, w, &req, method)
	}
}

func (h *Handler) serveUnary(ctx context.Context, w http.ResponseWriter, req *agentwire.Request, method string) {
	result, err := h.dispatchUnary(ctx, req, method)
	if err != nil {
		h.logger.DebugContext(ctx, "request failed",
			slog.String("method", method),
			slog.Any("error", err))
		h.writeResponse(w, agentwire.NewErrorResponse(req.ID, err))
		return
	}

	resp, err := agentwire.NewResponse(req.ID, result)
	if err != nil {
		h.writeResponse(w, agentwire.NewErrorResponse(req.ID, err))
		return
	}
	h.writeResponse(w, resp)
}

func (h *Handler) dispatchUnary(ctx context.Context, req *agentwire.Request, method string) (any, error) {
	switch method {
	case agentwire.MethodMessageSend:
		var params agentwire.MessageSendParams
		if err := req.UnmarshalParams(&params); err != nil {
			return nil, err
		}
		return h.OnMessageSend(ctx, &params)

	case agentwire.MethodTasksGet:
		var params agentwire.TaskQueryParams
		if err := req.UnmarshalParams(&params); err != nil {
			return nil, err
		}
		return h.OnGetTask(ctx, &params)

	case agentwire.MethodTasksCancel:
		var params agentwire.TaskIDParams
		if err := req.UnmarshalParams(&params); err != nil {
			return nil, err
		}
		return h.OnCancelTask(ctx, &params)

	case agentwire.MethodTasksList:
		params := agentwire.TaskListParams{}
		if len(req.Params) > 0 {
			if err := req.UnmarshalParams(&params); err != nil {
				return nil, err
			}
		}
		return h.OnListTasks(ctx, &params)

	case agentwire.MethodPushConfigSet:
		var params agentwire.TaskPushNotificationConfig
		if err := req.UnmarshalParams(&params); err != nil {
			return nil, err
		}
		return h.OnSetPushConfig(ctx, &params)

	case agentwire.MethodPushConfigGet:
		var params agentwire.TaskIDParams
		if err := req.UnmarshalParams(&params); err != nil {
			return nil, err
		}
		return h.OnGetPushConfig(ctx, &params)

	default:
		return nil, agentwire.ErrMethodNotFound.WithMessage("unknown method %q", req.Method)
	}
}

func (h *Handler) serveStream(ctx context.Context, w http.ResponseWriter, req *agentwire.Request, method string) {
	var events <-chan agentwire.Event
	var err error

	switch method {
	case agentwire.MethodMessageStream:
		var params agentwire.MessageSendParams
		if err = req.UnmarshalParams(&params); err == nil {
			events, err = h.OnMessageStream(ctx, &params)
		}
	case agentwire.MethodTasksResubscribe:
		var params agentwire.TaskIDParams
		if err = req.UnmarshalParams(&params); err == nil {
			events, err = h.OnResubscribe(ctx, &params)
		}
	}
	if err != nil {
		h.writeResponse(w, agentwire.NewErrorResponse(req.ID, err))
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		h.writeResponse(w, agentwire.NewErrorResponse(req.ID,
			agentwire.ErrInternal.WithMessage("connection does not support streaming")))
		return
	}

	for ev := range events {
		resp, err := agentwire.NewResponse(req.ID, ev)
		if err != nil {
			h.logger.ErrorContext(ctx, "could not encode stream event",
				slog.String("method", method),
				slog.Any("error", err))
			continue
		}
		if err := sse.WriteEvent(ev.EventKind(), resp); err != nil {
			// Client disconnected; the handler goroutine drains the
			// remaining events on its own.
			return
		}
	}
}

func (h *Handler) writeResponse(w http.ResponseWriter, resp *agentwire.Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.MarshalWrite(w, resp); err != nil {
		h.logger.Error("could not write response", slog.Any("error", err))
	}
}
