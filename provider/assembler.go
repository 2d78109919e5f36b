package provider

import (
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/zester4/RaidenAlpha/messages"
)

// partialCall accumulates the fragments of one tool call, keyed by the
// backend's streaming index.
type partialCall struct {
	id        string
	name      string
	arguments strings.Builder
	finalized bool
}

// Assemble drains a provider event stream and reconstructs the complete
// assistant message. Content deltas are concatenated in arrival order and
// forwarded to onDelta (when non-nil) as they arrive. Tool-call fragments are
// grouped by index; a call is finalized the moment it has an id, a name, and
// an argument buffer that parses as valid JSON, and later fragments for a
// finalized index are ignored. Finalized calls are returned in the order they
// completed.
//
// A call whose buffer never becomes valid JSON is dropped from the result.
// On a stream error Assemble returns the message assembled so far together
// with the error.
func Assemble(events <-chan StreamEvent, onDelta func(string)) (messages.Message, error) {
	var content strings.Builder
	partials := make(map[int]*partialCall)
	var finalized []messages.ToolCallRequest
	var streamErr error

	for event := range events {
		switch ev := event.(type) {
		case Delim:
			// stream boundaries carry no payload

		case Error:
			streamErr = ev.Err

		case Chunk:
			if ev.ContentDelta != "" {
				content.WriteString(ev.ContentDelta)
				if onDelta != nil {
					onDelta(ev.ContentDelta)
				}
			}
			for _, tc := range ev.ToolCalls {
				pc, ok := partials[tc.Index]
				if !ok {
					pc = &partialCall{}
					partials[tc.Index] = pc
				}
				if pc.finalized {
					continue
				}
				if tc.ID != "" {
					pc.id = tc.ID
				}
				if tc.Name != "" {
					pc.name = tc.Name
				}
				pc.arguments.WriteString(tc.Arguments)

				if pc.id != "" && pc.name != "" && gjson.Valid(pc.arguments.String()) {
					pc.finalized = true
					finalized = append(finalized, messages.ToolCallRequest{
						ID:        pc.id,
						Name:      pc.name,
						Arguments: pc.arguments.String(),
					})
				}
			}
		}
	}

	for index, pc := range partials {
		if !pc.finalized {
			slog.Debug("dropping incomplete tool call",
				slog.Int("index", index),
				slog.String("id", pc.id),
				slog.String("name", pc.name),
				slog.String("arguments", pc.arguments.String()))
		}
	}

	return messages.Assistant(content.String(), finalized), streamErr
}
