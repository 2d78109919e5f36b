package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zester4/RaidenAlpha/messages"
)

const snippetLen = 200

// Dispatcher resolves a model-issued tool call to a registered tool,
// validates and parses its arguments, executes it, and normalizes success or
// failure into a returnable string. It holds no state across calls.
//
// Dispatch never returns an error and never panics: every failure mode is
// reduced to a string that re-enters the conversation as the tool's output.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch executes a single tool call and returns its result string.
//
// Declared failures (missing parameters, tool-reported errors) come back as
// descriptive "Error executing tool ..." strings the model can react to.
// Undeclared failures are logged in full and reduced to an opaque
// "Critical Error" string so internals never leak into model context.
func (d *Dispatcher) Dispatch(ctx context.Context, call messages.ToolCallRequest) (out string) {
	if call.Name == "" {
		slog.Error("tool call missing function name", slog.String("call_id", call.ID))
		return "Error: tool call missing function name."
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic executing tool",
				slog.String("tool", call.Name),
				slog.Any("panic", r),
				slog.String("arguments", snippet(call.Arguments)))
			out = fmt.Sprintf("Critical Error executing tool %s.", call.Name)
		}
	}()

	args, err := ParseArgs(call.Arguments)
	if err != nil {
		slog.Error("invalid tool arguments",
			slog.String("tool", call.Name),
			slog.String("arguments", snippet(call.Arguments)))
		return fmt.Sprintf("Error: invalid JSON arguments for %s", call.Name)
	}

	def, found := d.registry.Get(call.Name)
	if !found {
		slog.Error("unknown function requested", slog.String("tool", call.Name))
		return fmt.Sprintf("Error: unknown function '%s'", call.Name)
	}

	slog.Debug("dispatching tool call",
		slog.String("tool", call.Name),
		slog.String("call_id", call.ID),
		slog.String("arguments", snippet(call.Arguments)))

	if err := def.Validate(args); err != nil {
		slog.Error("tool argument validation failed",
			slog.String("tool", call.Name),
			slog.String("error", err.Error()))
		return fmt.Sprintf("Error executing tool %s: %v", call.Name, err)
	}

	result, err := def.Execute(ctx, args)
	if err != nil {
		var argErr *ArgumentError
		var execErr *ExecutionError
		if errors.As(err, &argErr) || errors.As(err, &execErr) {
			slog.Error("tool execution failed",
				slog.String("tool", call.Name),
				slog.String("error", err.Error()))
			return fmt.Sprintf("Error executing tool %s: %v", call.Name, err)
		}
		slog.Error("unexpected error executing tool",
			slog.String("tool", call.Name),
			slog.String("error", err.Error()),
			slog.String("arguments", snippet(call.Arguments)))
		return fmt.Sprintf("Critical Error executing tool %s.", call.Name)
	}

	slog.Info("tool executed",
		slog.String("tool", call.Name),
		slog.String("result", snippet(result)))
	return result
}

func snippet(s string) string {
	if len(s) > snippetLen {
		return s[:snippetLen] + "..."
	}
	return s
}
