package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zester4/RaidenAlpha/messages"
)

func feed(events ...StreamEvent) <-chan StreamEvent {
	ch := make(chan StreamEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestAssembleTextOnly(t *testing.T) {
	var deltas []string
	msg, err := Assemble(feed(
		Delim{Delim: "start"},
		Chunk{ContentDelta: "Hel"},
		Chunk{ContentDelta: "lo"},
		Delim{Delim: "end"},
	), func(d string) { deltas = append(deltas, d) })

	require.NoError(t, err)
	assert.Equal(t, messages.RoleAssistant, msg.Role)
	assert.Equal(t, "Hello", msg.Content.Content)
	assert.Empty(t, msg.ToolCalls)
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
}

func TestAssembleNilDeltaCallback(t *testing.T) {
	msg, err := Assemble(feed(Chunk{ContentDelta: "hi"}), nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Content.Content)
}

func TestAssembleFragmentedToolCall(t *testing.T) {
	msg, err := Assemble(feed(
		Delim{Delim: "start"},
		Chunk{ToolCalls: []ToolCallDelta{{Index: 0, ID: "call_1", Name: "get_weather", Arguments: `{"loc`}}},
		Chunk{ToolCalls: []ToolCallDelta{{Index: 0, Arguments: `ation":"Paris"}`}}},
		Delim{Delim: "end"},
	), nil)

	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
	assert.Equal(t, "get_weather", msg.ToolCalls[0].Name)
	assert.Equal(t, `{"location":"Paris"}`, msg.ToolCalls[0].Arguments)
}

func TestAssembleFinalizesOnce(t *testing.T) {
	msg, err := Assemble(feed(
		Chunk{ToolCalls: []ToolCallDelta{{Index: 0, ID: "call_1", Name: "echo", Arguments: `{}`}}},
		// fragments after finalization must not mutate the call
		Chunk{ToolCalls: []ToolCallDelta{{Index: 0, Arguments: `{"extra":true}`}}},
	), nil)

	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, `{}`, msg.ToolCalls[0].Arguments)
}

func TestAssembleCompletionOrder(t *testing.T) {
	// index 1 completes before index 0: the result lists it first
	msg, err := Assemble(feed(
		Chunk{ToolCalls: []ToolCallDelta{
			{Index: 0, ID: "call_a", Name: "slow", Arguments: `{"a`},
			{Index: 1, ID: "call_b", Name: "fast", Arguments: `{}`},
		}},
		Chunk{ToolCalls: []ToolCallDelta{{Index: 0, Arguments: `":1}`}}},
	), nil)

	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 2)
	assert.Equal(t, "call_b", msg.ToolCalls[0].ID)
	assert.Equal(t, "call_a", msg.ToolCalls[1].ID)
}

func TestAssembleDropsInvalidArguments(t *testing.T) {
	msg, err := Assemble(feed(
		Chunk{ContentDelta: "done"},
		Chunk{ToolCalls: []ToolCallDelta{{Index: 0, ID: "call_1", Name: "broken", Arguments: `{"x":`}}},
	), nil)

	require.NoError(t, err)
	assert.Equal(t, "done", msg.Content.Content)
	assert.Empty(t, msg.ToolCalls)
}

func TestAssembleStreamError(t *testing.T) {
	boom := errors.New("connection reset")
	msg, err := Assemble(feed(
		Chunk{ContentDelta: "partial "},
		Chunk{ToolCalls: []ToolCallDelta{{Index: 0, ID: "call_1", Name: "echo", Arguments: `{}`}}},
		Error{Err: boom},
	), nil)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, "partial ", msg.Content.Content)
	require.Len(t, msg.ToolCalls, 1)
}

func TestAssembleIdempotentOverReplay(t *testing.T) {
	events := []StreamEvent{
		Chunk{ContentDelta: "The weather in "},
		Chunk{ContentDelta: "Paris"},
		Chunk{ToolCalls: []ToolCallDelta{{Index: 0, ID: "call_1", Name: "get_weather", Arguments: `{"location":`}}},
		Chunk{ToolCalls: []ToolCallDelta{{Index: 0, Arguments: `"Paris"}`}}},
	}

	first, err := Assemble(feed(events...), nil)
	require.NoError(t, err)
	second, err := Assemble(feed(events...), nil)
	require.NoError(t, err)

	assert.Equal(t, first.Content.Content, second.Content.Content)
	assert.Equal(t, first.ToolCalls, second.ToolCalls)
}
