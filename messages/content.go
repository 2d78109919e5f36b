package messages

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var jsonNull = []byte(`null`)

// ContentOrParts represents either a simple string content or a collection of
// content parts. It serializes to a JSON string, an array of typed parts, or
// null when empty.
type ContentOrParts struct {
	Content string        // Raw string content, used when the message is just text
	Parts   []ContentPart // Slice of typed content parts (text, file)
	_       struct{}      // require keyed usage
}

// Empty reports whether the content carries neither text nor parts.
func (c ContentOrParts) Empty() bool {
	return strings.TrimSpace(c.Content) == "" && len(c.Parts) == 0
}

// Text returns the textual portion of the content: the raw string, or the
// concatenated text parts when the content is multi-part.
func (c ContentOrParts) Text() string {
	if c.Content != "" {
		return c.Content
	}
	var sb strings.Builder
	for _, part := range c.Parts {
		if tp, ok := part.(TextContentPart); ok {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// MarshalJSON returns the Content as a JSON string if it's non-empty,
// otherwise the Parts as a JSON array, and null when both are empty.
func (c ContentOrParts) MarshalJSON() ([]byte, error) {
	if strings.TrimSpace(c.Content) != "" {
		return json.Marshal(c.Content)
	}
	if c.Parts == nil {
		return jsonNull, nil
	}
	return json.Marshal(c.Parts)
}

// UnmarshalJSON handles string content, null, and arrays of typed content
// parts. Returns an error on invalid JSON or unknown part types.
func (c *ContentOrParts) UnmarshalJSON(input []byte) error {
	if !gjson.ValidBytes(input) {
		return fmt.Errorf("invalid json: %s", input)
	}
	jv := gjson.ParseBytes(input)
	if jv.Type == gjson.Null {
		return nil
	}
	if jv.IsArray() {
		aj := jv.Array()
		parts := make([]ContentPart, len(aj))
		for idx, ajv := range aj {
			tpe := ajv.Get("type").String()
			switch tpe {
			case "text":
				var part TextContentPart
				if err := part.UnmarshalJSON([]byte(ajv.Raw)); err != nil {
					return fmt.Errorf("invalid text part at %d: %w", idx, err)
				}
				parts[idx] = part
			case "file":
				var part FileContentPart
				if err := part.UnmarshalJSON([]byte(ajv.Raw)); err != nil {
					return fmt.Errorf("invalid file part at %d: %w", idx, err)
				}
				parts[idx] = part
			default:
				return fmt.Errorf("content part at %d has an unknown type %q", idx, tpe)
			}
		}
		c.Parts = parts
		return nil
	}
	c.Content = jv.String()
	return nil
}

// ContentPart is an interface that marks structs as valid content parts.
// Implementations are TextContentPart and FileContentPart.
type ContentPart interface {
	contentPart()
}

// Text creates a new TextContentPart with the given text.
func Text(text string) TextContentPart {
	return TextContentPart{Text: text}
}

// TextContentPart represents a text-only content part.
type TextContentPart struct {
	Text string   `json:"text"` // The actual text content
	_    struct{} // require keyed usage
}

func (TextContentPart) contentPart() {}

var tcpJSON = []byte(`{"type":"text"}`)

// MarshalJSON serializes the text content with a "type":"text" field.
func (t TextContentPart) MarshalJSON() ([]byte, error) {
	return sjson.SetBytes(tcpJSON, "text", t.Text)
}

// UnmarshalJSON validates and extracts the required 'text' field.
func (t *TextContentPart) UnmarshalJSON(input []byte) error {
	text := gjson.GetBytes(input, "text")
	if !text.Exists() {
		return errors.New("missing required field 'text'")
	}
	t.Text = text.String()
	return nil
}

// File creates a FileContentPart from inline data (a base64 data URI) and its
// MIME type.
func File(dataURI, mimeType string) FileContentPart {
	return FileContentPart{Data: dataURI, MIME: mimeType}
}

// FileRef creates a FileContentPart referencing an external URI.
func FileRef(url, mimeType string) FileContentPart {
	return FileContentPart{URL: url, MIME: mimeType}
}

// FileContentPart represents a media reference: either inline base64 data
// (as a data URI) or an external URL, plus the MIME type of the payload.
type FileContentPart struct {
	Data string   // inline data URI, e.g. "data:image/png;base64,..."
	URL  string   // external location, used when Data is empty
	MIME string   // MIME type of the referenced payload
	_    struct{} // require keyed usage
}

func (FileContentPart) contentPart() {}

var fcpJSON = []byte(`{"type":"file"}`)

// MarshalJSON serializes the file reference with a "type":"file" field. The
// payload lands under "file.file_data" for inline data or "file.file_id" for
// external references, with the MIME type under "file.format".
func (f FileContentPart) MarshalJSON() ([]byte, error) {
	result := fcpJSON
	var err error
	if f.Data != "" {
		result, err = sjson.SetBytes(result, "file.file_data", f.Data)
	} else {
		result, err = sjson.SetBytes(result, "file.file_id", f.URL)
	}
	if err != nil {
		return nil, err
	}
	if f.MIME != "" {
		result, err = sjson.SetBytes(result, "file.format", f.MIME)
	}
	return result, err
}

// UnmarshalJSON validates and extracts the required 'file' object.
func (f *FileContentPart) UnmarshalJSON(input []byte) error {
	file := gjson.GetBytes(input, "file")
	if !file.Exists() || !file.IsObject() {
		return errors.New("missing required field 'file'")
	}
	f.Data = file.Get("file_data").String()
	f.URL = file.Get("file_id").String()
	f.MIME = file.Get("format").String()
	if f.Data == "" && f.URL == "" {
		return errors.New("file part requires either 'file_data' or 'file_id'")
	}
	return nil
}
