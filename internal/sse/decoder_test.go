// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package sse

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecoder_Decode(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input string
		want  []*Event
	}{
		"single event": {
			input: "event: status-update\ndata: {\"kind\":\"status-update\"}\n\n",
			want: []*Event{
				{Type: "status-update", Data: `{"kind":"status-update"}`},
			},
		},
		"multiple events": {
			input: "event: task\ndata: {\"id\":\"t1\"}\n\nevent: message\ndata: {\"id\":\"m1\"}\n\n",
			want: []*Event{
				{Type: "task", Data: `{"id":"t1"}`},
				{Type: "message", Data: `{"id":"m1"}`},
			},
		},
		"multi-line data joined with newline": {
			input: "data: first\ndata: second\n\n",
			want: []*Event{
				{Data: "first\nsecond"},
			},
		},
		"comments and blank lines ignored": {
			input: ": keep-alive\n\n: another\nevent: task\ndata: {}\n\n",
			want: []*Event{
				{Type: "task", Data: "{}"},
			},
		},
		"id and retry fields": {
			input: "id: 42\nretry: 3000\ndata: x\n\n",
			want: []*Event{
				{ID: "42", Retry: 3000, Data: "x"},
			},
		},
		"value without leading space": {
			input: "data:tight\n\n",
			want: []*Event{
				{Data: "tight"},
			},
		},
		"trailing event without blank line": {
			input: "event: task\ndata: {}",
			want: []*Event{
				{Type: "task", Data: "{}"},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			d := NewDecoder(strings.NewReader(tt.input))
			var got []*Event
			for {
				ev, err := d.Decode()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				got = append(got, ev)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecoder_EmptyStream(t *testing.T) {
	t.Parallel()

	d := NewDecoder(strings.NewReader(""))
	if _, err := d.Decode(); !errors.Is(err, io.EOF) {
		t.Errorf("Decode() error = %v, want io.EOF", err)
	}
}
