// Package tool defines the uniform capability contract every plugin
// implements (name, description, JSON-schema parameters, execute), the
// registry that maps tool names to definitions, and the dispatcher that
// resolves model-issued tool calls into returnable result strings.
//
// The dispatcher is the containment boundary for tool failures: declared
// argument and execution errors are converted to descriptive strings that
// re-enter the conversation for the model to react to, while undeclared
// errors and panics are logged in full and reduced to an opaque message so
// internals never leak into model context.
package tool
