// Package openai implements the provider contract on top of the OpenAI chat
// completions API, translating the conversation wire model to the SDK's
// request unions and the SDK's streamed chunks back into provider events.
package openai
