// Package memory persists conversation history in an append-only list and
// serves token-bounded context windows for completion requests.
//
// The log is the single source of truth for a conversation: every message is
// appended in arrival order and never rewritten. Reads reconstruct a window
// that always starts with the system message and keeps the most recent
// messages that fit the token budget, dropping oldest first. When the backing
// store is unreachable the conversation degrades to the system message alone
// instead of failing the turn.
package memory
