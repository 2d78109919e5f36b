package memory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/zester4/RaidenAlpha/messages"
	"github.com/zester4/RaidenAlpha/vector"
)

const (
	defaultKey       = "raiden:conversation"
	defaultMaxTokens = 4000

	// estimated tokens per character of serialized message text
	charsPerToken = 4

	// over-fetch factor: trailing entries retrieved per read relative to the
	// budget, so trimming happens client-side on a bounded slice
	overFetchFactor = 5

	mirrorTimeout    = 10 * time.Second
	mirrorSnippetLen = 200
)

// Conversation is a persisted, token-bounded conversation log. Appends are
// unconditional; the budget applies only when reading a context window back.
type Conversation struct {
	store     Store
	key       string
	system    messages.Message
	systemRaw string
	maxTokens int
	index     vector.Index
}

// Option configures a Conversation during construction.
type Option = opts.Option[Conversation]

// WithKey sets the list key the conversation persists under.
func WithKey(key string) Option {
	return opts.Type[Conversation](func(c *Conversation) error {
		if key == "" {
			return errors.New("conversation key cannot be empty")
		}
		c.key = key
		return nil
	})
}

// WithMaxTokens sets the token budget for read windows.
func WithMaxTokens(n int) Option {
	return opts.Type[Conversation](func(c *Conversation) error {
		if n <= 0 {
			return errors.New("token budget must be positive")
		}
		c.maxTokens = n
		return nil
	})
}

// WithVectorIndex enables best-effort mirroring of appended messages into a
// semantic index.
func WithVectorIndex(index vector.Index) Option {
	return opts.Type[Conversation](func(c *Conversation) error {
		c.index = index
		return nil
	})
}

// New creates a conversation over the given store, seeding the log with the
// system message: an empty log gets it as its first entry, and a log whose
// head differs (a changed system prompt) gets the current one prepended.
// Seeding failures are logged and tolerated; reads degrade accordingly.
func New(ctx context.Context, store Store, system messages.Message, options ...Option) (*Conversation, error) {
	if store == nil {
		return nil, errors.New("conversation store is required")
	}

	c := &Conversation{
		store:     store,
		system:    system,
		key:       defaultKey,
		maxTokens: defaultMaxTokens,
	}
	if err := opts.Apply(c, options); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(system)
	if err != nil {
		return nil, err
	}
	c.systemRaw = string(raw)

	c.seed(ctx)
	return c, nil
}

func (c *Conversation) seed(ctx context.Context) {
	length, err := c.store.LLen(ctx, c.key)
	if err != nil {
		slog.Warn("conversation log unavailable during seeding", slog.String("error", err.Error()))
		return
	}
	if length == 0 {
		if err := c.store.LPush(ctx, c.key, c.systemRaw); err != nil {
			slog.Warn("failed to seed system message", slog.String("error", err.Error()))
		}
		return
	}
	head, err := c.store.LIndex(ctx, c.key, 0)
	if err != nil {
		slog.Warn("failed to inspect log head", slog.String("error", err.Error()))
		return
	}
	if head != c.systemRaw {
		if err := c.store.LPush(ctx, c.key, c.systemRaw); err != nil {
			slog.Warn("failed to prepend updated system message", slog.String("error", err.Error()))
		}
	}
}

// Ready reports whether the backing store answers.
func (c *Conversation) Ready(ctx context.Context) bool {
	return c.store.Ping(ctx) == nil
}

// System returns the conversation's system message.
func (c *Conversation) System() messages.Message {
	return c.system
}

// Add appends a message to the log and reports whether it was persisted.
// A false return means the message is not part of history and the turn must
// not proceed on top of it. When a vector index is configured the message is
// mirrored into it asynchronously; mirror failures never affect the result.
func (c *Conversation) Add(ctx context.Context, msg messages.Message) bool {
	raw, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to serialize message", slog.String("error", err.Error()))
		return false
	}
	if err := c.store.RPush(ctx, c.key, string(raw)); err != nil {
		slog.Error("failed to persist message",
			slog.String("role", string(msg.Role)),
			slog.String("error", err.Error()))
		return false
	}
	if c.index != nil {
		go c.mirror(msg)
	}
	return true
}

func (c *Conversation) mirror(msg messages.Message) {
	summary := mirrorSummary(msg)
	if summary == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()

	err := c.index.Upsert(ctx, vector.Document{
		Data: summary,
		Metadata: map[string]any{
			"role":      string(msg.Role),
			"timestamp": strfmt.DateTime(time.Now()).String(),
		},
	})
	if err != nil {
		slog.Warn("vector mirror failed",
			slog.String("role", string(msg.Role)),
			slog.String("error", err.Error()))
	}
}

// mirrorSummary renders the searchable text for a message. System messages
// and tool-call-only assistant messages are not mirrored.
func mirrorSummary(msg messages.Message) string {
	text := msg.Content.Text()
	switch msg.Role {
	case messages.RoleUser:
		if text == "" {
			return ""
		}
		return "User said: " + text
	case messages.RoleAssistant:
		if text == "" {
			return ""
		}
		return "Assistant response: " + text
	case messages.RoleTool:
		if len(text) > mirrorSnippetLen {
			text = text[:mirrorSnippetLen]
		}
		return "Tool result (" + msg.ToolCallID + "): " + text
	}
	return ""
}

// Read returns the context window for the next completion: the system
// message followed by the most recent messages that fit the token budget, in
// chronological order. Token cost is estimated from serialized length. When
// the store is unreachable the window degrades to the system message alone.
func (c *Conversation) Read(ctx context.Context) []messages.Message {
	degraded := []messages.Message{c.system}

	length, err := c.store.LLen(ctx, c.key)
	if err != nil {
		slog.Warn("conversation log unavailable, using system message only", slog.String("error", err.Error()))
		return degraded
	}

	fetch := int64(c.maxTokens/charsPerToken) * overFetchFactor
	start := length - fetch
	if start < 0 {
		start = 0
	}

	items, err := c.store.LRange(ctx, c.key, start, -1)
	if err != nil {
		slog.Warn("failed to read conversation log, using system message only", slog.String("error", err.Error()))
		return degraded
	}
	if start == 0 && len(items) > 0 {
		// the head is the stored system message; a fresh copy leads the window
		items = items[1:]
	}

	used := len(c.systemRaw) / charsPerToken
	var kept []messages.Message
	for i := len(items) - 1; i >= 0; i-- {
		raw := items[i]
		cost := len(raw) / charsPerToken
		if used+cost > c.maxTokens {
			break
		}
		var msg messages.Message
		if err := msg.UnmarshalJSON([]byte(raw)); err != nil {
			slog.Warn("skipping unreadable log entry", slog.String("error", err.Error()))
			continue
		}
		used += cost
		kept = append(kept, msg)
	}

	window := make([]messages.Message, 0, len(kept)+1)
	window = append(window, c.system)
	for i := len(kept) - 1; i >= 0; i-- {
		window = append(window, kept[i])
	}
	return window
}
