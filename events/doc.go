// Package events defines the turn-scoped notifications the orchestration
// loop publishes while serving a conversation turn: stream boundaries,
// incremental response text, tool activity, the final response, and errors.
//
// Events are a sealed set with custom JSON marshaling (a "type" marker plus
// pre-allocated templates), so they can cross a broker wire and be decoded
// back into the same concrete types. Consumers attach through the Hook
// interface; the broker forwards each decoded event to the matching hook
// method.
package events
