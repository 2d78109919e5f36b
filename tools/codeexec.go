package tools

import (
	"context"
	"fmt"

	"github.com/zester4/RaidenAlpha/tool"
)

// CodeExecution declares the code-execution capability without running
// anything: arbitrary code from model output is never executed in-process.
// The tool acknowledges the request so the model can relay that to the user
// instead of hallucinating results.
func CodeExecution() (tool.Definition, error) {
	return tool.New("code_execution",
		func(_ context.Context, args tool.Args) (string, error) {
			lang := args.StringOr("language", "unknown")
			return fmt.Sprintf("Code execution is disabled in this environment; the %s snippet was received but not run.", lang), nil
		},
		tool.Description("Accepts a code snippet for execution. Execution is disabled; the snippet is acknowledged but never run."),
		tool.Parameter("language", "string", "Language of the snippet", false),
		tool.Parameter("code", "string", "The code to execute", true),
	)
}
