// Package raiden is a conversational agent runtime around streaming chat
// completions: it persists history in a token-bounded conversation log,
// reassembles streamed responses including fragmented tool calls, executes
// requested tools through a containment dispatcher, and runs the two-round
// loop that feeds tool results back for a final answer.
//
// A turn proceeds as:
//
//  1. Persist the user message; a failed append aborts the turn.
//  2. Request a streamed completion over the current context window with the
//     tool roster attached, publishing text deltas as they arrive.
//  3. If the assembled response requests tools, execute them in order and
//     persist each result, then request a second completion without tools.
//  4. Persist and publish the final assistant message.
//
// Progress is published through a broker so any number of hooks (console
// renderers, recorders) can observe a turn without being in its call path.
package raiden
