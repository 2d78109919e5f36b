package vector

import "context"

// Document is one entry mirrored into the index. Data holds the raw text the
// index embeds server-side; Metadata travels alongside and comes back on
// query matches.
type Document struct {
	ID       string
	Data     string
	Metadata map[string]any
	_        struct{}
}

// Match is one similarity-search result, best first.
type Match struct {
	ID       string
	Score    float64
	Data     string
	Metadata map[string]any
	_        struct{}
}

// Index is the contract the conversation mirror and the semantic search tool
// depend on. Implementations embed text server-side; callers never handle
// raw vectors.
type Index interface {
	Upsert(ctx context.Context, docs ...Document) error
	Query(ctx context.Context, text string, topK int) ([]Match, error)
	IsReady(ctx context.Context) bool
}
