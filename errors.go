// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"errors"
	"fmt"
)

// ErrInvalidPart reports a malformed part payload during decode.
// At the RPC boundary it surfaces as ErrInvalidParams.
var ErrInvalidPart = errors.New("invalid part")

// JSON-RPC error codes. The -32700..-32603 block is defined by
// JSON-RPC 2.0, -32001..-32005 by the A2A specification; the
// -3201x block is assigned by this module.
const (
	CodeParseError                   = -32700
	CodeInvalidRequest               = -32600
	CodeMethodNotFound               = -32601
	CodeInvalidParams                = -32602
	CodeInternalError                = -32603
	CodeTaskNotFound                 = -32001
	CodeTaskNotCancelable            = -32002
	CodePushNotificationNotSupported = -32003
	CodeUnsupportedOperation         = -32004
	CodeContentTypeNotSupported      = -32005
	CodeInvalidTransition            = -32010
	CodeTaskBusy                     = -32011
	CodeTimeout                      = -32012
	CodeExecutorError                = -32013
)

// Error is a JSON-RPC 2.0 error object. It implements the error
// interface so protocol errors flow through ordinary Go error
// handling and map back onto the wire unchanged.
type Error struct {
	// Code identifies the error type.
	Code int `json:"code"`
	// Message is a short description of the error.
	Message string `json:"message"`
	// Data carries optional additional detail.
	Data any `json:"data,omitzero"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code, so
// wrapped and detail-carrying copies still match the sentinel values
// below under errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithMessage returns a copy of the error with a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...), Data: e.Data}
}

// WithData returns a copy of the error carrying additional detail.
func (e *Error) WithData(data any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Data: data}
}

// Protocol error sentinels. Handlers return these (or WithMessage /
// WithData copies) and the transport writes them as JSON-RPC error
// objects.
var (
	// ErrParse reports a malformed JSON-RPC envelope.
	ErrParse = &Error{Code: CodeParseError, Message: "parse error"}

	// ErrInvalidRequest reports a structurally invalid request object.
	ErrInvalidRequest = &Error{Code: CodeInvalidRequest, Message: "invalid request"}

	// ErrMethodNotFound reports an unknown RPC method.
	ErrMethodNotFound = &Error{Code: CodeMethodNotFound, Message: "method not found"}

	// ErrInvalidParams reports invalid method parameters.
	ErrInvalidParams = &Error{Code: CodeInvalidParams, Message: "invalid params"}

	// ErrInternal reports an internal server error.
	ErrInternal = &Error{Code: CodeInternalError, Message: "internal error"}

	// ErrTaskNotFound reports that the requested task id is unknown.
	ErrTaskNotFound = &Error{Code: CodeTaskNotFound, Message: "task not found"}

	// ErrTaskNotCancelable reports a cancel request against a task
	// that already reached a terminal state.
	ErrTaskNotCancelable = &Error{Code: CodeTaskNotCancelable, Message: "task cannot be canceled"}

	// ErrPushNotificationNotSupported reports that the agent does not
	// support push notifications.
	ErrPushNotificationNotSupported = &Error{Code: CodePushNotificationNotSupported, Message: "push notifications are not supported"}

	// ErrUnsupportedOperation reports an operation the agent does not support.
	ErrUnsupportedOperation = &Error{Code: CodeUnsupportedOperation, Message: "this operation is not supported"}

	// ErrContentTypeNotSupported reports incompatible content types.
	ErrContentTypeNotSupported = &Error{Code: CodeContentTypeNotSupported, Message: "content type not supported"}

	// ErrInvalidTransition reports a task state transition attempted
	// from an illegal source state. The task is left unchanged.
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition, Message: "invalid task state transition"}

	// ErrTaskBusy reports a message/send for a task id that already
	// has an executor in flight.
	ErrTaskBusy = &Error{Code: CodeTaskBusy, Message: "task already has an execution in flight"}

	// ErrTimeout reports that a blocking send did not observe a
	// terminal event within the configured interval.
	ErrTimeout = &Error{Code: CodeTimeout, Message: "timed out waiting for task completion"}

	// ErrExecutorError wraps a failure raised by the injected agent executor.
	ErrExecutorError = &Error{Code: CodeExecutorError, Message: "agent executor failed"}
)

// AsError converts any error into an *Error suitable for the wire.
// Protocol errors pass through unchanged; everything else becomes an
// internal error carrying the original message.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var protoErr *Error
	if errors.As(err, &protoErr) {
		return protoErr
	}
	if errors.Is(err, ErrInvalidPart) {
		return ErrInvalidParams.WithMessage("%s", err.Error())
	}
	return ErrInternal.WithMessage("%s", err.Error())
}
