package raiden

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/zester4/RaidenAlpha/events"
	"github.com/zester4/RaidenAlpha/internal/broker"
	"github.com/zester4/RaidenAlpha/memory"
	"github.com/zester4/RaidenAlpha/messages"
	"github.com/zester4/RaidenAlpha/provider"
	"github.com/zester4/RaidenAlpha/tool"
)

const defaultTopic = "raiden.conversation"

// Agent drives conversation turns: it owns the model handle, the tool
// registry and dispatcher, the persisted conversation, and the broker its
// progress events go out on. Construct it once and reuse it across turns.
type Agent struct {
	name         string
	model        provider.Model
	conversation *memory.Conversation
	registry     *tool.Registry
	dispatcher   *tool.Dispatcher
	broker       broker.Broker
	topicID      string
}

// Option configures an Agent during construction.
type Option = opts.Option[Agent]

// WithName sets the agent's display name.
func WithName(name string) Option {
	return opts.Type[Agent](func(a *Agent) error {
		a.name = name
		return nil
	})
}

// WithModel sets the model that serves completions.
func WithModel(m provider.Model) Option {
	return opts.Type[Agent](func(a *Agent) error {
		a.model = m
		return nil
	})
}

// WithConversation sets the persisted conversation the agent appends to and
// reads context windows from.
func WithConversation(c *memory.Conversation) Option {
	return opts.Type[Agent](func(a *Agent) error {
		a.conversation = c
		return nil
	})
}

// WithRegistry sets the tool roster offered to the model.
func WithRegistry(r *tool.Registry) Option {
	return opts.Type[Agent](func(a *Agent) error {
		a.registry = r
		return nil
	})
}

// WithBroker sets the broker progress events are published on. Defaults to
// an in-process broker.
func WithBroker(b broker.Broker) Option {
	return opts.Type[Agent](func(a *Agent) error {
		a.broker = b
		return nil
	})
}

// WithTopic sets the broker topic turn events are published under.
func WithTopic(id string) Option {
	return opts.Type[Agent](func(a *Agent) error {
		if id == "" {
			return errors.New("topic id cannot be empty")
		}
		a.topicID = id
		return nil
	})
}

// New creates an agent. A model and a conversation are required; the
// registry defaults to empty and the broker to in-process delivery.
func New(options ...Option) (*Agent, error) {
	a := &Agent{
		name:    "raiden",
		topicID: defaultTopic,
	}
	if err := opts.Apply(a, options); err != nil {
		return nil, err
	}
	if a.model == nil {
		return nil, errors.New("agent requires a model")
	}
	if a.conversation == nil {
		return nil, errors.New("agent requires a conversation")
	}
	if a.registry == nil {
		a.registry = tool.NewRegistry()
	}
	if a.broker == nil {
		a.broker = broker.Local()
	}
	a.dispatcher = tool.NewDispatcher(a.registry)
	return a, nil
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// RunTurn executes one conversation turn for the given user message and
// returns the final assistant message. When hook is non-nil it is subscribed
// to the agent's topic for the duration of the turn and receives text
// deltas, tool notifications, and the final response.
//
// The first completion round offers the tool roster; if the response
// requests tool calls they are executed in order, each result is persisted
// and published, and a second round without tools produces the final answer.
// The second round is served from a fresh read of the bounded window, so the
// token budget applies to it the same way it applies to the first.
//
// A stream that errors mid-response is surfaced as an Error event but does
// not end the turn: the partial message assembled so far is kept and the
// turn proceeds on it. Only a failed completion request aborts the turn.
func (a *Agent) RunTurn(ctx context.Context, input messages.Message, hook events.Hook) (messages.Message, error) {
	turnID := uuid.New()
	top := a.broker.Topic(ctx, a.topicID)

	if hook != nil {
		sub, err := top.Subscribe(ctx, hook)
		if err != nil {
			return messages.Message{}, err
		}
		defer sub.Unsubscribe()
	}

	if !a.conversation.Add(ctx, input) {
		err := errors.New("failed to persist user message")
		a.publishError(ctx, top, turnID, err)
		return messages.Message{}, err
	}

	window := a.conversation.Read(ctx)

	first, err := a.complete(ctx, top, turnID, window, a.registry.Definitions())
	if err != nil {
		a.publishError(ctx, top, turnID, err)
		return messages.Message{}, err
	}
	a.conversation.Add(ctx, first)

	if !first.HasToolCalls() {
		a.publish(ctx, top, events.Response{TurnID: turnID, Message: first, Timestamp: now()})
		return first, nil
	}

	a.publish(ctx, top, events.ToolCallsStarted{TurnID: turnID, Count: len(first.ToolCalls), Timestamp: now()})
	slog.Info("executing tool calls",
		slog.String("turn_id", turnID.String()),
		slog.Int("count", len(first.ToolCalls)))

	for _, call := range first.ToolCalls {
		out := a.dispatcher.Dispatch(ctx, call)
		result := messages.ToolResult(call.ID, out)
		a.conversation.Add(ctx, result)
		a.publish(ctx, top, events.ToolResult{
			TurnID:    turnID,
			CallID:    call.ID,
			ToolName:  call.Name,
			Content:   out,
			Timestamp: now(),
		})
	}

	// re-read so the follow-up round sees the tool results through the same
	// token budget as any other window
	window = a.conversation.Read(ctx)

	final, err := a.complete(ctx, top, turnID, window, nil)
	if err != nil {
		a.publishError(ctx, top, turnID, err)
		return messages.Message{}, err
	}
	a.conversation.Add(ctx, final)

	a.publish(ctx, top, events.Response{TurnID: turnID, Message: final, Timestamp: now()})
	return final, nil
}

func (a *Agent) complete(ctx context.Context, top broker.Topic, turnID uuid.UUID, window []messages.Message, tools []tool.Definition) (messages.Message, error) {
	stream, err := a.model.Provider().ChatCompletion(ctx, provider.CompletionParams{
		Messages: window,
		Tools:    tools,
		Model:    a.model,
		Stream:   true,
	})
	if err != nil {
		return messages.Message{}, err
	}

	a.publish(ctx, top, events.Delim{TurnID: turnID, Delim: "start"})
	msg, streamErr := provider.Assemble(stream, func(delta string) {
		a.publish(ctx, top, events.Chunk{TurnID: turnID, Delta: delta, Timestamp: now()})
	})
	a.publish(ctx, top, events.Delim{TurnID: turnID, Delim: "end"})

	if streamErr != nil {
		slog.Warn("completion stream interrupted, keeping partial message",
			slog.String("turn_id", turnID.String()),
			slog.String("error", streamErr.Error()))
		a.publishError(ctx, top, turnID, streamErr)
	}
	return msg, nil
}

func (a *Agent) publish(ctx context.Context, top broker.Topic, event events.Event) {
	if err := top.Publish(ctx, event); err != nil {
		slog.Warn("failed to publish event", slog.String("error", err.Error()))
	}
}

func (a *Agent) publishError(ctx context.Context, top broker.Topic, turnID uuid.UUID, err error) {
	a.publish(ctx, top, events.Error{TurnID: turnID, Err: err, Timestamp: now()})
}

func now() strfmt.DateTime {
	return strfmt.DateTime(time.Now())
}
