// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRequest_Validate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		request Request
		wantErr bool
	}{
		"valid string id": {
			request: Request{JSONRPC: "2.0", ID: "r1", Method: MethodTasksGet},
		},
		"valid numeric id": {
			request: Request{JSONRPC: "2.0", ID: float64(7), Method: MethodTasksGet},
		},
		"notification without id": {
			request: Request{JSONRPC: "2.0", Method: MethodTasksGet},
		},
		"wrong version": {
			request: Request{JSONRPC: "1.0", ID: "r1", Method: MethodTasksGet},
			wantErr: true,
		},
		"missing method": {
			request: Request{JSONRPC: "2.0", ID: "r1"},
			wantErr: true,
		},
		"object id": {
			request: Request{JSONRPC: "2.0", ID: map[string]any{}, Method: MethodTasksGet},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tt.request.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %t", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestRequest_UnmarshalParams(t *testing.T) {
	t.Parallel()

	req, err := NewRequest("r1", MethodTasksGet, &TaskQueryParams{ID: "t1", HistoryLength: 3})
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	var params TaskQueryParams
	if err := req.UnmarshalParams(&params); err != nil {
		t.Fatalf("UnmarshalParams() error = %v", err)
	}
	if diff := cmp.Diff(TaskQueryParams{ID: "t1", HistoryLength: 3}, params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}

	empty := &Request{JSONRPC: "2.0", ID: "r2", Method: MethodTasksGet}
	if err := empty.UnmarshalParams(&params); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("UnmarshalParams() on empty params = %v, want ErrInvalidParams", err)
	}

	malformed := &Request{JSONRPC: "2.0", ID: "r3", Method: MethodTasksGet, Params: []byte(`{"id":42}`)}
	if err := malformed.UnmarshalParams(&params); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("UnmarshalParams() on malformed params = %v, want ErrInvalidParams", err)
	}
}

func TestResponse_UnmarshalResult(t *testing.T) {
	t.Parallel()

	resp, err := NewResponse("r1", &Task{Kind: TaskEventKind, ID: "t1", ContextID: "c1"})
	if err != nil {
		t.Fatalf("NewResponse() error = %v", err)
	}

	var task Task
	if err := resp.UnmarshalResult(&task); err != nil {
		t.Fatalf("UnmarshalResult() error = %v", err)
	}
	if task.ID != "t1" || task.ContextID != "c1" {
		t.Errorf("task = %+v, want id t1 in context c1", task)
	}
}

func TestResponse_UnmarshalResultSurfacesError(t *testing.T) {
	t.Parallel()

	resp := NewErrorResponse("r1", ErrTaskNotFound.WithMessage("task %q not found", "t1"))
	if resp.Error == nil {
		t.Fatal("error response carries no error")
	}

	var task Task
	err := resp.UnmarshalResult(&task)
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("UnmarshalResult() error = %v, want ErrTaskNotFound", err)
	}
}

func TestNewErrorResponse_WrapsArbitraryErrors(t *testing.T) {
	t.Parallel()

	resp := NewErrorResponse(nil, errors.New("storage offline"))
	if resp.Error == nil {
		t.Fatal("error response carries no error")
	}
	if resp.Error.Code != CodeInternalError {
		t.Errorf("code = %d, want %d", resp.Error.Code, CodeInternalError)
	}
}

func TestCanonicalMethod(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		MethodLegacyTasksSend:          MethodMessageSend,
		MethodLegacyTasksSendSubscribe: MethodMessageStream,
		MethodLegacyMessagePending:     MethodTasksCancel,
		MethodMessageSend:              MethodMessageSend,
		MethodTasksResubscribe:         MethodTasksResubscribe,
		"tasks/destroy":                "tasks/destroy",
	}

	for method, want := range tests {
		if got := CanonicalMethod(method); got != want {
			t.Errorf("CanonicalMethod(%q) = %q, want %q", method, got, want)
		}
	}
}
