package messages

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Role identifies the author of a conversation message. The set is closed.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// ToolCallRequest is a finalized tool invocation emitted by the model.
// Arguments holds the raw JSON-encoded argument object. Immutable once
// finalized by the stream assembler.
type ToolCallRequest struct {
	ID        string
	Name      string
	Arguments string
	_         struct{} // require keyed usage
}

var tcrJSON = []byte(`{"type":"function"}`)

// MarshalJSON serializes to the wire shape
// {"id":..,"type":"function","function":{"name":..,"arguments":..}}.
func (t ToolCallRequest) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(tcrJSON, "id", t.ID)
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "function.name", t.Name)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(result, "function.arguments", t.Arguments)
}

// UnmarshalJSON extracts the id and nested function fields.
func (t *ToolCallRequest) UnmarshalJSON(input []byte) error {
	if !gjson.ValidBytes(input) {
		return fmt.Errorf("invalid json: %s", input)
	}
	id := gjson.GetBytes(input, "id")
	if !id.Exists() {
		return errors.New("missing required field 'id'")
	}
	fn := gjson.GetBytes(input, "function")
	if !fn.Exists() || !fn.IsObject() {
		return errors.New("missing required field 'function'")
	}
	t.ID = id.String()
	t.Name = fn.Get("name").String()
	t.Arguments = fn.Get("arguments").String()
	return nil
}

// Message is the atomic unit of conversation history.
//
// Invariants: ToolCalls is only set on assistant messages; ToolCallID is only
// set on tool messages and references a call emitted by the immediately
// preceding assistant message of the same turn.
type Message struct {
	Role       Role
	Content    ContentOrParts
	ToolCalls  []ToolCallRequest
	ToolCallID string
	Timestamp  strfmt.DateTime
	_          struct{} // require keyed usage
}

// System builds the conversation's system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: ContentOrParts{Content: content}}
}

// User builds a plain-text user message.
func User(text string) Message {
	return Message{
		Role:      RoleUser,
		Content:   ContentOrParts{Content: text},
		Timestamp: strfmt.DateTime(time.Now()),
	}
}

// UserParts builds a multi-part user message (text plus file attachments).
func UserParts(parts ...ContentPart) Message {
	return Message{
		Role:      RoleUser,
		Content:   ContentOrParts{Parts: parts},
		Timestamp: strfmt.DateTime(time.Now()),
	}
}

// Assistant builds an assistant message from assembled stream output.
func Assistant(content string, toolCalls []ToolCallRequest) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   ContentOrParts{Content: content},
		ToolCalls: toolCalls,
		Timestamp: strfmt.DateTime(time.Now()),
	}
}

// ToolResult builds the tool message answering the given call id.
func ToolResult(callID, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    ContentOrParts{Content: content},
		ToolCallID: callID,
		Timestamp:  strfmt.DateTime(time.Now()),
	}
}

// HasToolCalls reports whether the message requests any tool invocations.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// MarshalJSON emits the chat wire shape. Content is null when empty (the
// tool-call-only assistant case); tool_calls and tool_call_id are omitted
// when absent.
func (m Message) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes([]byte(`{}`), "role", string(m.Role))
	if err != nil {
		return nil, err
	}

	content, err := m.Content.MarshalJSON()
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetRawBytes(result, "content", content)
	if err != nil {
		return nil, err
	}

	if len(m.ToolCalls) > 0 {
		tcs, err := json.Marshal(m.ToolCalls)
		if err != nil {
			return nil, err
		}
		result, err = sjson.SetRawBytes(result, "tool_calls", tcs)
		if err != nil {
			return nil, err
		}
	}

	if m.ToolCallID != "" {
		result, err = sjson.SetBytes(result, "tool_call_id", m.ToolCallID)
		if err != nil {
			return nil, err
		}
	}

	if !time.Time(m.Timestamp).IsZero() {
		result, err = sjson.SetBytes(result, "timestamp", m.Timestamp.String())
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// UnmarshalJSON parses the chat wire shape back into a Message.
func (m *Message) UnmarshalJSON(input []byte) error {
	if !gjson.ValidBytes(input) {
		return fmt.Errorf("invalid json: %s", input)
	}

	role := gjson.GetBytes(input, "role")
	if !role.Exists() {
		return errors.New("missing required field 'role'")
	}
	m.Role = Role(role.String())
	if !m.Role.Valid() {
		return fmt.Errorf("unknown role %q", role.String())
	}

	if content := gjson.GetBytes(input, "content"); content.Exists() {
		if err := m.Content.UnmarshalJSON([]byte(content.Raw)); err != nil {
			return fmt.Errorf("invalid content: %w", err)
		}
	}

	if tcs := gjson.GetBytes(input, "tool_calls"); tcs.Exists() && tcs.IsArray() {
		if err := json.Unmarshal([]byte(tcs.Raw), &m.ToolCalls); err != nil {
			return fmt.Errorf("invalid tool_calls: %w", err)
		}
	}

	m.ToolCallID = gjson.GetBytes(input, "tool_call_id").String()

	if ts := gjson.GetBytes(input, "timestamp"); ts.Exists() {
		if err := m.Timestamp.UnmarshalText([]byte(ts.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}

	return nil
}
