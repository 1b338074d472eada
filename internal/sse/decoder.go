// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package sse decodes Server-Sent Event streams.
package sse

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Event is a single decoded Server-Sent Event.
type Event struct {
	// Type is the value of the event: field, empty when absent.
	Type string
	// Data is the concatenated data: payload. Multi-line data is
	// joined with newlines per the SSE framing rules.
	Data string
	// ID is the last-event-id, when the stream sets one.
	ID string
	// Retry is the reconnection delay in milliseconds, 0 when unset.
	Retry int
}

// maxFrameSize bounds a single event frame. Task snapshots with long
// histories can exceed bufio's default 64 KiB token limit.
const maxFrameSize = 10 << 20

// Decoder reads Server-Sent Events off a stream, typically an HTTP
// response body.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	return &Decoder{scanner: scanner}
}

// Decode returns the next event. It returns io.EOF when the stream
// ends cleanly with no partial event pending.
func (d *Decoder) Decode() (*Event, error) {
	event := &Event{}
	dirty := false

	for d.scanner.Scan() {
		line := d.scanner.Text()

		// A blank line terminates the frame.
		if line == "" {
			if dirty {
				return event, nil
			}
			continue
		}

		// Comment lines keep the connection alive, nothing more.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if !found {
			// A line with no colon is a field with an empty value.
			field, value = line, ""
		}
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			event.Type = value
			dirty = true
		case "data":
			if event.Data != "" {
				event.Data += "\n"
			}
			event.Data += value
			dirty = true
		case "id":
			event.ID = value
			dirty = true
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil {
				event.Retry = ms
			}
		}
	}

	if err := d.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event stream: %w", err)
	}
	if dirty {
		return event, nil
	}
	return nil, io.EOF
}
