package events

import (
	"errors"
	"fmt"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/zester4/RaidenAlpha/messages"
)

// Event is the sealed union of turn notifications.
type Event interface {
	event()
}

// Delim marks a boundary in the response stream ("start", "end").
type Delim struct {
	TurnID uuid.UUID
	Delim  string
	_      struct{}
}

func (Delim) event() {}

var delimJSON = []byte(`{"type":"delim"}`)

func (d Delim) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(delimJSON, "turn_id", d.TurnID.String())
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(result, "delim", d.Delim)
}

func (d *Delim) UnmarshalJSON(input []byte) error {
	turnID, err := turnIDFrom(input)
	if err != nil {
		return err
	}
	d.TurnID = turnID
	d.Delim = gjson.GetBytes(input, "delim").String()
	return nil
}

// Chunk carries one increment of streamed assistant text.
type Chunk struct {
	TurnID    uuid.UUID
	Delta     string
	Timestamp strfmt.DateTime
	_         struct{}
}

func (Chunk) event() {}

var chunkJSON = []byte(`{"type":"chunk"}`)

func (c Chunk) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(chunkJSON, "turn_id", c.TurnID.String())
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "delta", c.Delta)
	if err != nil {
		return nil, err
	}
	return setTimestamp(result, c.Timestamp)
}

func (c *Chunk) UnmarshalJSON(input []byte) error {
	turnID, err := turnIDFrom(input)
	if err != nil {
		return err
	}
	c.TurnID = turnID
	c.Delta = gjson.GetBytes(input, "delta").String()
	return timestampFrom(input, &c.Timestamp)
}

// ToolCallsStarted announces that the assistant requested tool invocations
// and execution is about to begin.
type ToolCallsStarted struct {
	TurnID    uuid.UUID
	Count     int
	Timestamp strfmt.DateTime
	_         struct{}
}

func (ToolCallsStarted) event() {}

var toolCallsStartedJSON = []byte(`{"type":"tool_calls_started"}`)

func (t ToolCallsStarted) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(toolCallsStartedJSON, "turn_id", t.TurnID.String())
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "count", t.Count)
	if err != nil {
		return nil, err
	}
	return setTimestamp(result, t.Timestamp)
}

func (t *ToolCallsStarted) UnmarshalJSON(input []byte) error {
	turnID, err := turnIDFrom(input)
	if err != nil {
		return err
	}
	t.TurnID = turnID
	t.Count = int(gjson.GetBytes(input, "count").Int())
	return timestampFrom(input, &t.Timestamp)
}

// ToolResult reports the outcome of one executed tool call.
type ToolResult struct {
	TurnID    uuid.UUID
	CallID    string
	ToolName  string
	Content   string
	Timestamp strfmt.DateTime
	_         struct{}
}

func (ToolResult) event() {}

var toolResultJSON = []byte(`{"type":"tool_result"}`)

func (t ToolResult) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(toolResultJSON, "turn_id", t.TurnID.String())
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "call_id", t.CallID)
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "tool_name", t.ToolName)
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "content", t.Content)
	if err != nil {
		return nil, err
	}
	return setTimestamp(result, t.Timestamp)
}

func (t *ToolResult) UnmarshalJSON(input []byte) error {
	turnID, err := turnIDFrom(input)
	if err != nil {
		return err
	}
	t.TurnID = turnID
	t.CallID = gjson.GetBytes(input, "call_id").String()
	t.ToolName = gjson.GetBytes(input, "tool_name").String()
	t.Content = gjson.GetBytes(input, "content").String()
	return timestampFrom(input, &t.Timestamp)
}

// Response carries the final assistant message of a turn.
type Response struct {
	TurnID    uuid.UUID
	Message   messages.Message
	Timestamp strfmt.DateTime
	_         struct{}
}

func (Response) event() {}

var responseJSON = []byte(`{"type":"response"}`)

func (r Response) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(responseJSON, "turn_id", r.TurnID.String())
	if err != nil {
		return nil, err
	}
	msg, err := json.Marshal(r.Message)
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetRawBytes(result, "message", msg)
	if err != nil {
		return nil, err
	}
	return setTimestamp(result, r.Timestamp)
}

func (r *Response) UnmarshalJSON(input []byte) error {
	turnID, err := turnIDFrom(input)
	if err != nil {
		return err
	}
	r.TurnID = turnID
	msg := gjson.GetBytes(input, "message")
	if !msg.Exists() {
		return errors.New("missing required field 'message'")
	}
	if err := r.Message.UnmarshalJSON([]byte(msg.Raw)); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	return timestampFrom(input, &r.Timestamp)
}

// Error reports a turn failure.
type Error struct {
	TurnID    uuid.UUID
	Err       error
	Timestamp strfmt.DateTime
	_         struct{}
}

func (Error) event() {}

var errorJSON = []byte(`{"type":"error"}`)

func (e Error) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(errorJSON, "turn_id", e.TurnID.String())
	if err != nil {
		return nil, err
	}
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	result, err = sjson.SetBytes(result, "error", msg)
	if err != nil {
		return nil, err
	}
	return setTimestamp(result, e.Timestamp)
}

func (e *Error) UnmarshalJSON(input []byte) error {
	turnID, err := turnIDFrom(input)
	if err != nil {
		return err
	}
	e.TurnID = turnID
	if msg := gjson.GetBytes(input, "error").String(); msg != "" {
		e.Err = errors.New(msg)
	}
	return timestampFrom(input, &e.Timestamp)
}

// ToJSON serializes an event for the broker wire.
func ToJSON(event Event) ([]byte, error) {
	return json.Marshal(event)
}

// FromJSON decodes a wire payload back into its concrete event type by its
// "type" marker.
func FromJSON(input []byte) (Event, error) {
	if !gjson.ValidBytes(input) {
		return nil, fmt.Errorf("invalid json: %s", input)
	}
	switch tpe := gjson.GetBytes(input, "type").String(); tpe {
	case "delim":
		var ev Delim
		if err := ev.UnmarshalJSON(input); err != nil {
			return nil, err
		}
		return ev, nil
	case "chunk":
		var ev Chunk
		if err := ev.UnmarshalJSON(input); err != nil {
			return nil, err
		}
		return ev, nil
	case "tool_calls_started":
		var ev ToolCallsStarted
		if err := ev.UnmarshalJSON(input); err != nil {
			return nil, err
		}
		return ev, nil
	case "tool_result":
		var ev ToolResult
		if err := ev.UnmarshalJSON(input); err != nil {
			return nil, err
		}
		return ev, nil
	case "response":
		var ev Response
		if err := ev.UnmarshalJSON(input); err != nil {
			return nil, err
		}
		return ev, nil
	case "error":
		var ev Error
		if err := ev.UnmarshalJSON(input); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", tpe)
	}
}

func turnIDFrom(input []byte) (uuid.UUID, error) {
	if !gjson.ValidBytes(input) {
		return uuid.Nil, fmt.Errorf("invalid json: %s", input)
	}
	raw := gjson.GetBytes(input, "turn_id")
	if !raw.Exists() {
		return uuid.Nil, errors.New("missing required field 'turn_id'")
	}
	turnID, err := uuid.Parse(raw.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid turn_id: %w", err)
	}
	return turnID, nil
}

func setTimestamp(input []byte, ts strfmt.DateTime) ([]byte, error) {
	return sjson.SetBytes(input, "timestamp", ts.String())
}

func timestampFrom(input []byte, ts *strfmt.DateTime) error {
	raw := gjson.GetBytes(input, "timestamp")
	if !raw.Exists() {
		return nil
	}
	return ts.UnmarshalText([]byte(raw.String()))
}
