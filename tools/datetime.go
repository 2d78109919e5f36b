package tools

import (
	"context"
	"time"

	"github.com/zester4/RaidenAlpha/tool"
)

// DateTime reports the current date and time.
func DateTime() (tool.Definition, error) {
	return tool.New("get_current_datetime",
		func(_ context.Context, args tool.Args) (string, error) {
			layout := args.StringOr("format", "2006-01-02 15:04:05 MST")
			return time.Now().Format(layout), nil
		},
		tool.Description("Returns the current date and time. Accepts an optional Go reference layout (e.g. 2006-01-02) to control formatting."),
		tool.Parameter("format", "string", "Go time layout to format with; defaults to '2006-01-02 15:04:05 MST'", false),
	)
}
