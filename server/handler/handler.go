// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package handler implements the protocol request handler: it resolves
// incoming messages to tasks, dispatches the agent executor, folds the
// resulting event stream into the task store, and fans events out to
// streaming subscribers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agentwire/agentwire"
	"github.com/agentwire/agentwire/server/event"
	"github.com/agentwire/agentwire/server/execution"
	"github.com/agentwire/agentwire/server/task"
)

// DefaultSendTimeout bounds how long message/send waits for the task
// to finish before returning the in-flight snapshot.
const DefaultSendTimeout = 30 * time.Second

// Handler serves protocol operations over a task manager, an event
// queue manager and an agent executor.
type Handler struct {
	card        *agentwire.AgentCard
	manager     *task.Manager
	queues      event.Manager
	executor    execution.AgentExecutor
	pushStore   task.PushConfigStore
	pushSender  *task.PushSender
	sendTimeout time.Duration
	logger      *slog.Logger

	// running maps task ids to the cancel funcs of their in-flight
	// executor goroutines.
	runningMu sync.Mutex
	running   map[string]context.CancelFunc
}

// Config wires a Handler. Card, Manager, Queues and Executor are
// required; push notification fields are optional.
type Config struct {
	Card        *agentwire.AgentCard
	Manager     *task.Manager
	Queues      event.Manager
	Executor    execution.AgentExecutor
	PushStore   task.PushConfigStore
	PushSender  *task.PushSender
	SendTimeout time.Duration
	Logger      *slog.Logger
}

// New creates a Handler from the config.
func New(config Config) (*Handler, error) {
	if config.Card == nil {
		return nil, fmt.Errorf("agent card cannot be nil")
	}
	if config.Manager == nil {
		return nil, fmt.Errorf("task manager cannot be nil")
	}
	if config.Queues == nil {
		return nil, fmt.Errorf("queue manager cannot be nil")
	}
	if config.Executor == nil {
		return nil, fmt.Errorf("agent executor cannot be nil")
	}
	timeout := config.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		card:        config.Card,
		manager:     config.Manager,
		queues:      config.Queues,
		executor:    config.Executor,
		pushStore:   config.PushStore,
		pushSender:  config.PushSender,
		sendTimeout: timeout,
		logger:      logger,
		running:     make(map[string]context.CancelFunc),
	}, nil
}

// Card returns the agent card served at the discovery endpoints.
func (h *Handler) Card() *agentwire.AgentCard { return h.card }

// OnMessageSend serves message/send. It resolves the message to a
// task, runs the executor, and waits up to the send timeout for the
// task to finish. If the executor is still running when the timeout
// fires, the in-flight task snapshot is returned (or ErrTimeout when
// the caller requested blocking semantics) and processing continues
// in the background.
func (h *Handler) OnMessageSend(ctx context.Context, params *agentwire.MessageSendParams) (agentwire.Event, error) {
	t, q, err := h.dispatch(ctx, params)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, h.sendTimeout)
	defer cancel()

	consumer := event.NewConsumer(q)
	var reply *agentwire.Message
	var sawFinal bool
	for ev := range consumer.ConsumeAll(waitCtx) {
		h.apply(ctx, ev)
		if msg, ok := ev.(*agentwire.Message); ok {
			reply = msg
		}
		if agentwire.IsFinalEvent(ev) {
			sawFinal = true
		}
	}

	if sawFinal {
		_ = h.queues.Close(t.ID)
	} else {
		// Timed out or the caller disconnected; keep folding events in
		// the background so the task still reaches a terminal state.
		go h.drain(context.WithoutCancel(ctx), t.ID, consumer)
		if ctx.Err() == nil && params.Configuration != nil && params.Configuration.Blocking {
			// The caller asked for strictly blocking semantics, so an
			// in-flight snapshot is not an acceptable answer.
			return nil, agentwire.ErrTimeout.WithMessage("task %s did not finish within %s", t.ID, h.sendTimeout)
		}
	}

	if reply != nil {
		return reply, nil
	}
	return h.manager.Get(ctx, t.ID, historyLength(params))
}

// OnMessageStream serves message/stream. The returned channel carries
// every event of the task's stream, ending with a final event. The
// caller owns the connection; the channel closes when the stream ends
// or ctx is done.
func (h *Handler) OnMessageStream(ctx context.Context, params *agentwire.MessageSendParams) (<-chan agentwire.Event, error) {
	t, q, err := h.dispatch(ctx, params)
	if err != nil {
		return nil, err
	}

	out := make(chan agentwire.Event, 1)
	// The initial task snapshot opens every stream.
	out <- t

	consumer := event.NewConsumer(q)
	go func() {
		defer close(out)
		var sawFinal bool
		for ev := range consumer.ConsumeAll(ctx) {
			h.apply(context.WithoutCancel(ctx), ev)
			if agentwire.IsFinalEvent(ev) {
				sawFinal = true
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				// Subscriber is gone; keep applying so the task
				// is not stranded mid-flight.
				h.drain(context.WithoutCancel(ctx), t.ID, consumer)
				return
			}
		}
		if sawFinal {
			_ = h.queues.Close(t.ID)
		} else if ctx.Err() != nil {
			h.drain(context.WithoutCancel(ctx), t.ID, consumer)
		}
	}()
	return out, nil
}

// OnGetTask serves tasks/get.
func (h *Handler) OnGetTask(ctx context.Context, params *agentwire.TaskQueryParams) (*agentwire.Task, error) {
	if params == nil || params.ID == "" {
		return nil, agentwire.ErrInvalidParams.WithMessage("task id is required")
	}
	return h.manager.Get(ctx, params.ID, params.HistoryLength)
}

// OnListTasks serves tasks/list. With an id set the result is that
// single task; otherwise all tasks, optionally filtered by context.
func (h *Handler) OnListTasks(ctx context.Context, params *agentwire.TaskListParams) ([]*agentwire.Task, error) {
	if params == nil {
		params = &agentwire.TaskListParams{}
	}
	if params.ID != "" {
		t, err := h.manager.Get(ctx, params.ID, 0)
		if err != nil {
			return nil, err
		}
		return []*agentwire.Task{t}, nil
	}
	return h.manager.List(ctx, params.ContextID, params.Limit)
}

// OnCancelTask serves tasks/cancel. Cancellation is cooperative: the
// executor's context is canceled and its Cancel hook invoked, then the
// canceled state is recorded regardless of whether the executor
// acknowledged.
func (h *Handler) OnCancelTask(ctx context.Context, params *agentwire.TaskIDParams) (*agentwire.Task, error) {
	if params == nil || params.ID == "" {
		return nil, agentwire.ErrInvalidParams.WithMessage("task id is required")
	}

	t, err := h.manager.CancelableState(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	h.runningMu.Lock()
	cancel, wasRunning := h.running[params.ID]
	h.runningMu.Unlock()
	if wasRunning {
		cancel()
	}

	// Advisory: let the executor release resources. Executors without
	// a cancel hook report ErrUnsupportedOperation, which is fine.
	if q, err := h.queues.Get(params.ID); err == nil {
		if updater, err := task.NewUpdater(t.ID, t.ContextID, q); err == nil {
			rc := execution.NewRequestContext(t, nil)
			if err := h.executor.Cancel(ctx, rc, updater); err != nil &&
				!errors.Is(err, agentwire.ErrUnsupportedOperation) {
				h.logger.WarnContext(ctx, "executor cancel hook failed",
					slog.String("task_id", t.ID),
					slog.Any("error", err))
			}
		}
	}

	ev := &agentwire.TaskStatusUpdateEvent{
		Kind:      agentwire.StatusUpdateEventKind,
		TaskID:    t.ID,
		ContextID: t.ContextID,
		Status:    agentwire.NewTaskStatus(agentwire.TaskStateCanceled, nil),
		Final:     true,
	}
	canceled, err := h.manager.ApplyEvent(ctx, ev)
	if err != nil {
		return nil, err
	}
	h.notifyPush(ctx, canceled)

	// Terminate any live streams, then retire the queue.
	if q, err := h.queues.Get(t.ID); err == nil {
		_ = q.Enqueue(ctx, ev)
	}
	_ = h.queues.Close(t.ID)

	return canceled, nil
}

// OnResubscribe serves tasks/resubscribe: it attaches a new event
// stream to an existing task. A terminal task yields one synthetic
// final status event reflecting its current state.
func (h *Handler) OnResubscribe(ctx context.Context, params *agentwire.TaskIDParams) (<-chan agentwire.Event, error) {
	if params == nil || params.ID == "" {
		return nil, agentwire.ErrInvalidParams.WithMessage("task id is required")
	}

	t, err := h.manager.Get(ctx, params.ID, 0)
	if err != nil {
		return nil, err
	}

	out := make(chan agentwire.Event, 1)
	if t.Status.State.Terminal() {
		out <- &agentwire.TaskStatusUpdateEvent{
			Kind:      agentwire.StatusUpdateEventKind,
			TaskID:    t.ID,
			ContextID: t.ContextID,
			Status:    t.Status,
			Final:     true,
		}
		close(out)
		return out, nil
	}

	tap, err := h.queues.Tap(params.ID)
	if err != nil {
		return nil, agentwire.AsError(err)
	}
	out <- t

	consumer := event.NewConsumer(tap)
	go func() {
		defer close(out)
		for ev := range consumer.ConsumeAll(ctx) {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// OnSetPushConfig serves tasks/pushNotificationConfig/set.
func (h *Handler) OnSetPushConfig(ctx context.Context, params *agentwire.TaskPushNotificationConfig) (*agentwire.TaskPushNotificationConfig, error) {
	if h.pushStore == nil || !h.card.Capabilities.PushNotifications {
		return nil, agentwire.ErrPushNotificationNotSupported
	}
	if params == nil || params.TaskID == "" {
		return nil, agentwire.ErrInvalidParams.WithMessage("task id is required")
	}
	if params.PushNotificationConfig == nil {
		return nil, agentwire.ErrInvalidParams.WithMessage("push notification config is required")
	}
	if err := params.PushNotificationConfig.Validate(); err != nil {
		return nil, agentwire.ErrInvalidParams.WithMessage("%s", err.Error())
	}

	// The task must exist before a webhook can watch it.
	if _, err := h.manager.Get(ctx, params.TaskID, 0); err != nil {
		return nil, err
	}
	if err := h.pushStore.Set(ctx, params.TaskID, params.PushNotificationConfig); err != nil {
		return nil, agentwire.AsError(err)
	}
	return params, nil
}

// OnGetPushConfig serves tasks/pushNotificationConfig/get.
func (h *Handler) OnGetPushConfig(ctx context.Context, params *agentwire.TaskIDParams) (*agentwire.TaskPushNotificationConfig, error) {
	if h.pushStore == nil || !h.card.Capabilities.PushNotifications {
		return nil, agentwire.ErrPushNotificationNotSupported
	}
	if params == nil || params.ID == "" {
		return nil, agentwire.ErrInvalidParams.WithMessage("task id is required")
	}

	config, err := h.pushStore.Get(ctx, params.ID)
	if err != nil {
		return nil, agentwire.AsError(err)
	}
	return &agentwire.TaskPushNotificationConfig{
		TaskID:                 params.ID,
		PushNotificationConfig: config,
	}, nil
}

// dispatch resolves the message to a task, registers an optional push
// config, and launches the executor. It returns the task snapshot and
// the queue carrying the execution's events.
func (h *Handler) dispatch(ctx context.Context, params *agentwire.MessageSendParams) (*agentwire.Task, *event.Queue, error) {
	if params == nil || params.Message == nil {
		return nil, nil, agentwire.ErrInvalidParams.WithMessage("message is required")
	}

	// A task with a live executor takes no concurrent sends. The store
	// check in Upsert covers the working state, but the executor may
	// not have transitioned yet; the running map closes that window.
	// The id is reserved under a single lock acquisition so two racing
	// sends cannot both pass the busy check.
	reserved := params.Message.TaskID
	if reserved != "" {
		h.runningMu.Lock()
		if _, busy := h.running[reserved]; busy {
			h.runningMu.Unlock()
			return nil, nil, agentwire.ErrTaskBusy.WithMessage(
				"task %s is already being processed", reserved)
		}
		h.running[reserved] = func() {}
		h.runningMu.Unlock()
	}
	release := func() {
		if reserved == "" {
			return
		}
		h.runningMu.Lock()
		delete(h.running, reserved)
		h.runningMu.Unlock()
	}

	t, err := h.manager.Upsert(ctx, params.Message)
	if err != nil {
		release()
		return nil, nil, err
	}

	if params.Configuration != nil && params.Configuration.PushNotificationConfig != nil {
		if h.pushStore == nil || !h.card.Capabilities.PushNotifications {
			release()
			return nil, nil, agentwire.ErrPushNotificationNotSupported
		}
		if err := h.pushStore.Set(ctx, t.ID, params.Configuration.PushNotificationConfig); err != nil {
			release()
			return nil, nil, agentwire.AsError(err)
		}
	}

	q, err := h.queues.Get(t.ID)
	if err != nil {
		release()
		return nil, nil, agentwire.AsError(err)
	}
	updater, err := task.NewUpdater(t.ID, t.ContextID, q)
	if err != nil {
		release()
		return nil, nil, agentwire.AsError(err)
	}
	rc := execution.NewRequestContext(t, params.Message).WithMetadata(params.Metadata)

	// The executor outlives the request that started it.
	execCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h.runningMu.Lock()
	h.running[t.ID] = cancel
	h.runningMu.Unlock()

	go h.runExecutor(execCtx, rc, updater, q)

	return t, q, nil
}

// runExecutor runs the executor and guarantees the stream terminates:
// an executor error, or a clean return without a final update, fails
// the task.
func (h *Handler) runExecutor(ctx context.Context, rc *execution.RequestContext, updater *task.Updater, q *event.Queue) {
	defer func() {
		h.runningMu.Lock()
		delete(h.running, rc.TaskID)
		h.runningMu.Unlock()
	}()

	err := h.executor.Execute(ctx, rc, updater)
	switch {
	case err != nil && !updater.Terminal():
		h.logger.ErrorContext(ctx, "executor failed",
			slog.String("task_id", rc.TaskID),
			slog.Any("error", err))
		failure := agentwire.NewAgentMessage(agentwire.ErrExecutorError.WithMessage("%s", err.Error()).Error())
		if err := updater.Fail(context.WithoutCancel(ctx), failure); err != nil {
			h.logger.ErrorContext(ctx, "could not publish executor failure",
				slog.String("task_id", rc.TaskID),
				slog.Any("error", err))
		}
	case err == nil && !updater.Terminal():
		failure := agentwire.NewAgentMessage("executor returned without a final update")
		if err := updater.Fail(context.WithoutCancel(ctx), failure); err != nil {
			h.logger.ErrorContext(ctx, "could not publish executor failure",
				slog.String("task_id", rc.TaskID),
				slog.Any("error", err))
		}
	}
}

// apply folds one event into the store and fires push notifications.
// Duplicate terminal events (for example a cancel that raced the
// executor's own final update) are logged and dropped.
func (h *Handler) apply(ctx context.Context, ev agentwire.Event) *agentwire.Task {
	t, err := h.manager.ApplyEvent(ctx, ev)
	if err != nil {
		if errors.Is(err, agentwire.ErrInvalidTransition) {
			h.logger.DebugContext(ctx, "dropped conflicting event",
				slog.String("task_id", ev.EventTaskID()),
				slog.Any("error", err))
			return nil
		}
		h.logger.ErrorContext(ctx, "could not apply event",
			slog.String("task_id", ev.EventTaskID()),
			slog.String("kind", ev.EventKind()),
			slog.Any("error", err))
		return nil
	}

	// An agent reply is the end of the exchange; walk the task to
	// completed so it does not linger in a non-terminal state.
	if _, ok := ev.(*agentwire.Message); ok && agentwire.IsFinalEvent(ev) {
		t = h.completeAfterReply(ctx, t)
	}

	if t != nil && t.Status.State.Terminal() {
		h.notifyPush(ctx, t)
	} else if ev, ok := ev.(*agentwire.TaskStatusUpdateEvent); ok && ev.Status.State == agentwire.TaskStateInputRequired {
		h.notifyPush(ctx, t)
	}
	return t
}

func (h *Handler) completeAfterReply(ctx context.Context, t *agentwire.Task) *agentwire.Task {
	if t == nil || t.Status.State.Terminal() {
		return t
	}
	for _, state := range []agentwire.TaskState{agentwire.TaskStateWorking, agentwire.TaskStateCompleted} {
		if t.Status.State == state {
			continue
		}
		next, err := h.manager.ApplyEvent(ctx, &agentwire.TaskStatusUpdateEvent{
			Kind:      agentwire.StatusUpdateEventKind,
			TaskID:    t.ID,
			ContextID: t.ContextID,
			Status:    agentwire.NewTaskStatus(state, nil),
			Final:     state == agentwire.TaskStateCompleted,
		})
		if err != nil {
			h.logger.DebugContext(ctx, "could not complete task after reply",
				slog.String("task_id", t.ID),
				slog.Any("error", err))
			return t
		}
		t = next
	}
	return t
}

// drain keeps applying events after the driving request went away,
// then retires the task's queue.
func (h *Handler) drain(ctx context.Context, taskID string, consumer *event.Consumer) {
	for ev := range consumer.ConsumeAll(ctx) {
		h.apply(ctx, ev)
	}
	_ = h.queues.Close(taskID)
}

func (h *Handler) notifyPush(ctx context.Context, t *agentwire.Task) {
	if h.pushSender == nil || t == nil {
		return
	}
	h.pushSender.Notify(ctx, t)
}

func historyLength(params *agentwire.MessageSendParams) int {
	if params.Configuration == nil {
		return 0
	}
	return params.Configuration.HistoryLength
}
