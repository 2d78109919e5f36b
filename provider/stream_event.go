package provider

import "github.com/go-openapi/strfmt"

// StreamEvent is a sealed union of the events a provider emits while serving
// a completion. The provider closes the event channel when the stream ends,
// after any terminal Error event.
type StreamEvent interface {
	streamEvent()
}

// Delim marks stream boundaries ("start", "end").
type Delim struct {
	Delim string
	_     struct{}
}

func (Delim) streamEvent() {}

// ToolCallDelta is one fragment of a tool call as the backend streamed it.
// Index correlates fragments of the same call across chunks; ID and Name are
// set only on the fragments that carry them, and Arguments holds a partial
// slice of the JSON argument text.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
	_         struct{}
}

// Chunk carries one increment of the response: a content delta, tool-call
// fragments, or both.
type Chunk struct {
	ContentDelta string
	ToolCalls    []ToolCallDelta
	Timestamp    strfmt.DateTime
	_            struct{}
}

func (Chunk) streamEvent() {}

// Error reports a stream failure. Events received before it remain valid; the
// assembler returns whatever it reconstructed alongside the error.
type Error struct {
	Err       error
	Timestamp strfmt.DateTime
	_         struct{}
}

func (Error) streamEvent() {}
