// Package provider defines the contract between the orchestration loop and
// the LLM completion backend, plus the streaming response assembler.
//
// A Provider turns a completion request into a channel of stream events:
// incremental text deltas and fragmented, index-tagged tool-call deltas, in
// the order the backend emitted them. The assembler consumes that channel and
// reconstructs the final assistant message, finalizing each tool call as soon
// as its accumulated argument buffer parses as valid JSON.
package provider
