// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// jsonRPCVersion is the only protocol version accepted on the wire.
const jsonRPCVersion = "2.0"

// Request is a JSON-RPC 2.0 request envelope. Params stay raw until
// the method is known, then decode into the typed params structs.
type Request struct {
	// JSONRPC must be exactly "2.0".
	JSONRPC string `json:"jsonrpc"`
	// ID is the caller-chosen correlation id: a string or a number.
	ID any `json:"id,omitzero"`
	// Method names the operation to perform.
	Method string `json:"method"`
	// Params holds the raw method parameters.
	Params jsontext.Value `json:"params,omitzero"`
}

// NewRequest creates a request envelope for the given method.
func NewRequest(id any, method string, params any) (*Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s params: %w", method, err)
	}
	return &Request{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Method:  method,
		Params:  raw,
	}, nil
}

// Validate reports whether the envelope is a well formed JSON-RPC 2.0
// request.
func (r *Request) Validate() error {
	if r.JSONRPC != jsonRPCVersion {
		return ErrInvalidRequest.WithMessage("jsonrpc version must be %q, got %q", jsonRPCVersion, r.JSONRPC)
	}
	if r.Method == "" {
		return ErrInvalidRequest.WithMessage("method cannot be empty")
	}
	switch r.ID.(type) {
	case nil, string, float64, int, int64:
	default:
		return ErrInvalidRequest.WithMessage("id must be a string or a number")
	}
	return nil
}

// UnmarshalParams decodes the raw params into v, mapping decode
// failures onto ErrInvalidParams.
func (r *Request) UnmarshalParams(v any) error {
	if len(r.Params) == 0 {
		return ErrInvalidParams.WithMessage("%s: params are required", r.Method)
	}
	if err := json.Unmarshal(r.Params, v); err != nil {
		return ErrInvalidParams.WithMessage("%s: %v", r.Method, err)
	}
	return nil
}

// Response is a JSON-RPC 2.0 response envelope. Exactly one of Result
// and Error is set.
type Response struct {
	// JSONRPC is always "2.0".
	JSONRPC string `json:"jsonrpc"`
	// ID mirrors the request id.
	ID any `json:"id"`
	// Result holds the raw result object on success.
	Result jsontext.Value `json:"result,omitzero"`
	// Error holds the error object on failure.
	Error *Error `json:"error,omitzero"`
}

// NewResponse creates a success response carrying result.
func NewResponse(id any, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &Response{JSONRPC: jsonRPCVersion, ID: id, Result: raw}, nil
}

// NewErrorResponse creates an error response from any error value.
func NewErrorResponse(id any, err error) *Response {
	return &Response{JSONRPC: jsonRPCVersion, ID: id, Error: AsError(err)}
}

// UnmarshalResult decodes the raw result into v. A response carrying
// an error returns that error instead.
func (r *Response) UnmarshalResult(v any) error {
	if r.Error != nil {
		return r.Error
	}
	if len(r.Result) == 0 {
		return fmt.Errorf("response has no result")
	}
	return json.Unmarshal(r.Result, v)
}
