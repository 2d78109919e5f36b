package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/fogfish/opts"
	"github.com/go-openapi/swag"
	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ExecuteFunc is the single entry point of a capability: it receives the
// validated, structured arguments and returns the tool's output or a declared
// failure.
type ExecuteFunc func(ctx context.Context, args Args) (string, error)

// Definition describes a registered tool: its unique name, a model-readable
// description, the JSON-schema object declaring its parameters, and the
// function that executes it. Definitions are created once at startup and
// never mutated.
type Definition struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Execute     ExecuteFunc
}

// ArgumentError reports missing or malformed arguments for a tool call.
// It is a declared, recoverable failure: the dispatcher surfaces it into the
// conversation instead of raising.
type ArgumentError struct {
	Tool    string
	Missing []string
	Reason  string
}

func (e *ArgumentError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required parameters: %s", strings.Join(e.Missing, ", "))
	}
	return e.Reason
}

// ExecutionError is a declared failure raised inside a tool. Like
// ArgumentError it is recoverable and re-enters the conversation as the
// tool's output.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string { return e.Err.Error() }

func (e *ExecutionError) Unwrap() error { return e.Err }

// Failf builds an ExecutionError for the named tool.
func Failf(name, format string, args ...any) error {
	return &ExecutionError{Tool: name, Err: fmt.Errorf(format, args...)}
}

// Args wraps a tool call's parsed argument object with typed accessors.
type Args struct {
	doc gjson.Result
	_   struct{} // require keyed usage
}

// ParseArgs parses a raw JSON argument payload. An empty payload is treated
// as an empty object.
func ParseArgs(raw string) (Args, error) {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	if !gjson.Valid(raw) {
		return Args{}, fmt.Errorf("invalid JSON arguments")
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return Args{}, fmt.Errorf("arguments must be a JSON object")
	}
	return Args{doc: doc}, nil
}

// Has reports whether the argument is present and non-null.
func (a Args) Has(name string) bool {
	v := a.doc.Get(name)
	return v.Exists() && v.Type != gjson.Null
}

// String returns the named argument as a string, or "" when absent.
func (a Args) String(name string) string { return a.doc.Get(name).String() }

// StringOr returns the named argument as a string, or def when absent.
func (a Args) StringOr(name, def string) string {
	if !a.Has(name) {
		return def
	}
	return a.doc.Get(name).String()
}

// Int returns the named argument as an integer, or 0 when absent.
func (a Args) Int(name string) int64 { return a.doc.Get(name).Int() }

// IntOr returns the named argument as an integer, or def when absent.
func (a Args) IntOr(name string, def int64) int64 {
	if !a.Has(name) {
		return def
	}
	return a.doc.Get(name).Int()
}

// Float returns the named argument as a float, or 0 when absent.
func (a Args) Float(name string) float64 { return a.doc.Get(name).Float() }

// Bool returns the named argument as a bool, or false when absent.
func (a Args) Bool(name string) bool { return a.doc.Get(name).Bool() }

// Raw returns the raw JSON of the argument object.
func (a Args) Raw() string { return a.doc.Raw }

// Validate checks the parsed arguments against the definition's schema:
// every name in the schema's required list must be present and non-null.
func (d Definition) Validate(args Args) error {
	var missing []string
	if d.Parameters != nil {
		for _, name := range d.Parameters.Required {
			if !args.Has(name) {
				missing = append(missing, name)
			}
		}
	}
	if len(missing) > 0 {
		return &ArgumentError{Tool: d.Name, Missing: missing}
	}
	return nil
}

// ObjectSchema returns an empty JSON-schema object suitable as a parameter
// declaration for a tool with no parameters.
func ObjectSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}
}

// Option configures a tool Definition during construction.
type Option = opts.Option[Definition]

// Description sets the model-readable summary of the tool.
var Description = opts.ForName[Definition, string]("Description")

// Parameter declares a named parameter on the tool's schema, preserving
// declaration order. Required parameters are appended to the schema's
// required list.
func Parameter(name, typ, description string, required bool) Option {
	return opts.Type[Definition](func(d *Definition) error {
		if d.Parameters == nil {
			d.Parameters = ObjectSchema()
		}
		d.Parameters.Properties.Set(name, &jsonschema.Schema{
			Type:        typ,
			Description: description,
		})
		if required {
			d.Parameters.Required = append(d.Parameters.Required, name)
		}
		return nil
	})
}

// EnumParameter declares a named string parameter constrained to a fixed set
// of values.
func EnumParameter(name, description string, values []string, required bool) Option {
	return opts.Type[Definition](func(d *Definition) error {
		if d.Parameters == nil {
			d.Parameters = ObjectSchema()
		}
		enum := make([]any, len(values))
		for i, v := range values {
			enum[i] = v
		}
		d.Parameters.Properties.Set(name, &jsonschema.Schema{
			Type:        "string",
			Description: description,
			Enum:        enum,
		})
		if required {
			d.Parameters.Required = append(d.Parameters.Required, name)
		}
		return nil
	})
}

// New creates a tool Definition and validates it: the name must be non-empty,
// the execute function must be set, the parameter schema must describe an
// object, and every required name must be declared among the properties.
func New(name string, execute ExecuteFunc, options ...Option) (Definition, error) {
	if strings.TrimSpace(name) == "" {
		return Definition{}, fmt.Errorf("tool name is required")
	}
	if execute == nil {
		return Definition{}, fmt.Errorf("tool %s: execute function is required", name)
	}

	def := Definition{Name: name, Execute: execute}
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	if def.Parameters == nil {
		def.Parameters = ObjectSchema()
	}
	if def.Parameters.Type != "object" {
		return Definition{}, fmt.Errorf("tool %s: parameter schema must be an object, got %q", name, def.Parameters.Type)
	}

	var declared []string
	if def.Parameters.Properties != nil {
		for pair := def.Parameters.Properties.Oldest(); pair != nil; pair = pair.Next() {
			declared = append(declared, pair.Key)
		}
	}
	for _, req := range def.Parameters.Required {
		if !swag.ContainsStrings(declared, req) {
			return Definition{}, fmt.Errorf("tool %s: required parameter %q is not declared", name, req)
		}
	}

	return def, nil
}

// Must wraps New and panics on error. Intended for static tool declarations
// whose schemas cannot fail at runtime.
func Must(name string, execute ExecuteFunc, options ...Option) Definition {
	def, err := New(name, execute, options...)
	if err != nil {
		panic(err)
	}
	return def
}
