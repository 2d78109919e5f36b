// Package tools contains the built-in tool definitions the agent ships
// with: clock, weather, web search, scraping, sandboxed filesystem access,
// and semantic memory search.
//
// Constructors that need a credential return an error when it is missing so
// the registry can skip them at startup instead of failing calls later.
package tools
