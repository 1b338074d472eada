// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

package agentwire

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Part kind discriminators. Receivers dispatch on the kind field
// before decoding the rest of the payload, so it must round-trip
// exactly as written.
const (
	TextPartKind = "text"
	FilePartKind = "file"
	DataPartKind = "data"
)

// Part is one content unit inside a Message or Artifact. A Part never
// changes kind after creation; the concrete type is selected by the
// "kind" discriminator at decode time.
type Part interface {
	// PartKind returns the kind discriminator of the part.
	PartKind() string
	// Validate reports whether the part is well formed.
	Validate() error
}

// TextPart is a plain text segment.
type TextPart struct {
	Kind     string         `json:"kind"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewTextPart creates a TextPart with the kind discriminator set.
func NewTextPart(text string) *TextPart {
	return &TextPart{Kind: TextPartKind, Text: text}
}

func (p *TextPart) PartKind() string { return TextPartKind }

// Validate reports whether the TextPart is well formed.
func (p *TextPart) Validate() error {
	if p.Kind != TextPartKind {
		return fmt.Errorf("%w: text part kind must be %q, got %q", ErrInvalidPart, TextPartKind, p.Kind)
	}
	return nil
}

// DataPart is an arbitrary structured payload.
type DataPart struct {
	Kind     string         `json:"kind"`
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewDataPart creates a DataPart with the kind discriminator set.
func NewDataPart(data map[string]any) *DataPart {
	return &DataPart{Kind: DataPartKind, Data: data}
}

func (p *DataPart) PartKind() string { return DataPartKind }

// Validate reports whether the DataPart is well formed.
func (p *DataPart) Validate() error {
	if p.Kind != DataPartKind {
		return fmt.Errorf("%w: data part kind must be %q, got %q", ErrInvalidPart, DataPartKind, p.Kind)
	}
	if p.Data == nil {
		return fmt.Errorf("%w: data part payload cannot be nil", ErrInvalidPart)
	}
	return nil
}

// FilePart is a file segment. Its content is either inline bytes or a
// URI reference, never both.
type FilePart struct {
	Kind     string         `json:"kind"`
	File     *FileContent   `json:"file"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewFilePart creates a FilePart with the kind discriminator set.
func NewFilePart(file *FileContent) *FilePart {
	return &FilePart{Kind: FilePartKind, File: file}
}

func (p *FilePart) PartKind() string { return FilePartKind }

// Validate reports whether the FilePart is well formed.
func (p *FilePart) Validate() error {
	if p.Kind != FilePartKind {
		return fmt.Errorf("%w: file part kind must be %q, got %q", ErrInvalidPart, FilePartKind, p.Kind)
	}
	if p.File == nil {
		return fmt.Errorf("%w: file part content cannot be nil", ErrInvalidPart)
	}
	return p.File.Validate()
}

// FileContent is the union of the two file representations: inline
// base64 bytes or a URI reference.
type FileContent struct {
	// Name is an optional file name.
	Name string `json:"name,omitzero"`
	// MimeType is an optional media type for the file.
	MimeType string `json:"mimeType,omitzero"`
	// Bytes holds base64 encoded file content. Mutually exclusive with URI.
	Bytes string `json:"bytes,omitzero"`
	// URI references externally hosted file content.
	URI string `json:"uri,omitzero"`
}

// Validate reports whether exactly one of Bytes and URI is set.
func (f *FileContent) Validate() error {
	switch {
	case f.Bytes == "" && f.URI == "":
		return fmt.Errorf("%w: file content needs either bytes or uri", ErrInvalidPart)
	case f.Bytes != "" && f.URI != "":
		return fmt.Errorf("%w: file content cannot carry both bytes and uri", ErrInvalidPart)
	}
	return nil
}

// Parts is an ordered sequence of Part values. It implements JSON
// marshaling that dispatches on the kind discriminator, so message
// and artifact payloads decode into the concrete part types.
type Parts []Part

// MarshalJSON implements json.Marshaler.
func (ps Parts) MarshalJSON() ([]byte, error) {
	return json.Marshal([]Part(ps))
}

// UnmarshalJSON implements json.Unmarshaler, selecting the concrete
// part type by the kind discriminator of each element.
func (ps *Parts) UnmarshalJSON(data []byte) error {
	var raw []jsontext.Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPart, err)
	}

	out := make(Parts, 0, len(raw))
	for i, elem := range raw {
		part, err := UnmarshalPart(elem)
		if err != nil {
			return fmt.Errorf("part at index %d: %w", i, err)
		}
		out = append(out, part)
	}
	*ps = out

	return nil
}

// UnmarshalPart decodes a single Part from its JSON encoding.
func UnmarshalPart(data []byte) (Part, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPart, err)
	}

	switch probe.Kind {
	case TextPartKind:
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: decode text part: %v", ErrInvalidPart, err)
		}
		return &p, nil
	case FilePartKind:
		var p FilePart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: decode file part: %v", ErrInvalidPart, err)
		}
		return &p, nil
	case DataPartKind:
		var p DataPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: decode data part: %v", ErrInvalidPart, err)
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("%w: unknown part kind %q", ErrInvalidPart, probe.Kind)
	}
}

// Validate reports whether every part in the sequence is well formed.
func (ps Parts) Validate() error {
	for i, p := range ps {
		if p == nil {
			return fmt.Errorf("%w: part at index %d is nil", ErrInvalidPart, i)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("part at index %d: %w", i, err)
		}
	}
	return nil
}
