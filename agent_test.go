package raiden

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zester4/RaidenAlpha/events"
	"github.com/zester4/RaidenAlpha/memory"
	"github.com/zester4/RaidenAlpha/messages"
	"github.com/zester4/RaidenAlpha/provider"
	"github.com/zester4/RaidenAlpha/tool"
)

type listStore struct {
	mu    sync.Mutex
	lists map[string][]string
	err   error
}

func newListStore() *listStore {
	return &listStore{lists: map[string][]string{}}
}

func (s *listStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *listStore) RPush(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.lists[key] = append(s.lists[key], value)
	return nil
}

func (s *listStore) LPush(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.lists[key] = append([]string{value}, s.lists[key]...)
	return nil
}

func (s *listStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	list := s.lists[key]
	n := int64(len(list))
	if start < 0 {
		start += n
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop += n
	}
	if start >= n || stop < start {
		return nil, nil
	}
	if stop >= n {
		stop = n - 1
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

func (s *listStore) LLen(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return int64(len(s.lists[key])), nil
}

func (s *listStore) LIndex(_ context.Context, key string, index int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	list := s.lists[key]
	if index < 0 {
		index += int64(len(list))
	}
	if index < 0 || index >= int64(len(list)) {
		return "", errors.New("index out of range")
	}
	return list[index], nil
}

func (s *listStore) len(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists[key])
}

type scriptedProvider struct {
	mu     sync.Mutex
	rounds [][]provider.StreamEvent
	params []provider.CompletionParams
}

func (p *scriptedProvider) ChatCompletion(_ context.Context, params provider.CompletionParams) (<-chan provider.StreamEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rounds) == 0 {
		return nil, errors.New("no scripted rounds left")
	}
	p.params = append(p.params, params)
	round := p.rounds[0]
	p.rounds = p.rounds[1:]

	ch := make(chan provider.StreamEvent, len(round))
	for _, ev := range round {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

type scriptedModel struct {
	prov *scriptedProvider
}

func (m *scriptedModel) Name() string                { return "scripted" }
func (m *scriptedModel) Provider() provider.Provider { return m.prov }

func newTestAgent(t *testing.T, store *listStore, prov *scriptedProvider, defs ...tool.Definition) *Agent {
	t.Helper()
	conv, err := memory.New(context.Background(), store, messages.System("You are helpful."))
	require.NoError(t, err)

	registry := tool.NewRegistry()
	for _, def := range defs {
		registry.Add(def)
	}

	agent, err := New(
		WithModel(&scriptedModel{prov: prov}),
		WithConversation(conv),
		WithRegistry(registry),
	)
	require.NoError(t, err)
	return agent
}

func TestRunTurnPlainResponse(t *testing.T) {
	store := newListStore()
	prov := &scriptedProvider{rounds: [][]provider.StreamEvent{{
		provider.Chunk{ContentDelta: "Hi "},
		provider.Chunk{ContentDelta: "there"},
	}}}
	agent := newTestAgent(t, store, prov)

	final, err := agent.RunTurn(context.Background(), messages.User("Hello"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", final.Content.Content)

	// system + user + assistant
	assert.Equal(t, 3, store.len("raiden:conversation"))

	require.Len(t, prov.params, 1)
	assert.Empty(t, prov.params[0].Tools)
	require.NotEmpty(t, prov.params[0].Messages)
	assert.Equal(t, messages.RoleSystem, prov.params[0].Messages[0].Role)
}

func TestRunTurnWithToolCalls(t *testing.T) {
	store := newListStore()
	prov := &scriptedProvider{rounds: [][]provider.StreamEvent{
		{
			provider.Chunk{ToolCalls: []provider.ToolCallDelta{{Index: 0, ID: "call_1", Name: "get_weather", Arguments: `{"location":`}}},
			provider.Chunk{ToolCalls: []provider.ToolCallDelta{{Index: 0, Arguments: `"Paris"}`}}},
		},
		{
			provider.Chunk{ContentDelta: "It is sunny in Paris."},
		},
	}}

	var gotLocation string
	weather := tool.Must("get_weather", func(_ context.Context, args tool.Args) (string, error) {
		gotLocation = args.String("location")
		return "sunny, 22C", nil
	}, tool.Parameter("location", "string", "city name", true))

	agent := newTestAgent(t, store, prov, weather)

	final, err := agent.RunTurn(context.Background(), messages.User("Weather in Paris?"), nil)
	require.NoError(t, err)
	assert.Equal(t, "It is sunny in Paris.", final.Content.Content)
	assert.Equal(t, "Paris", gotLocation)

	// system + user + assistant(tool calls) + tool + final
	assert.Equal(t, 5, store.len("raiden:conversation"))

	require.Len(t, prov.params, 2)
	assert.Len(t, prov.params[0].Tools, 1, "first round offers the roster")
	assert.Empty(t, prov.params[1].Tools, "follow-up round carries no tools")

	// the follow-up request includes the tool result
	followUp := prov.params[1].Messages
	last := followUp[len(followUp)-1]
	assert.Equal(t, messages.RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Equal(t, "sunny, 22C", last.Content.Content)
}

func TestRunTurnUnknownToolStillCompletes(t *testing.T) {
	store := newListStore()
	prov := &scriptedProvider{rounds: [][]provider.StreamEvent{
		{
			provider.Chunk{ToolCalls: []provider.ToolCallDelta{{Index: 0, ID: "call_1", Name: "no_such_tool", Arguments: `{}`}}},
		},
		{
			provider.Chunk{ContentDelta: "I could not run that tool."},
		},
	}}
	agent := newTestAgent(t, store, prov)

	final, err := agent.RunTurn(context.Background(), messages.User("do the thing"), nil)
	require.NoError(t, err)
	assert.Equal(t, "I could not run that tool.", final.Content.Content)

	followUp := prov.params[1].Messages
	last := followUp[len(followUp)-1]
	assert.Equal(t, messages.RoleTool, last.Role)
	assert.Equal(t, "Error: unknown function 'no_such_tool'", last.Content.Content)
}

func TestRunTurnAbortsWhenPersistenceFails(t *testing.T) {
	store := newListStore()
	prov := &scriptedProvider{}
	agent := newTestAgent(t, store, prov)

	store.mu.Lock()
	store.err = errors.New("connection refused")
	store.mu.Unlock()

	_, err := agent.RunTurn(context.Background(), messages.User("Hello"), nil)
	require.Error(t, err)
	assert.Empty(t, prov.params, "no completion may be requested for an unpersisted message")
}

type turnHook struct {
	events.NoopHook

	mu   sync.Mutex
	errs []error
	done chan struct{}
}

func newTurnHook() *turnHook {
	return &turnHook{done: make(chan struct{}, 1)}
}

func (h *turnHook) OnError(_ context.Context, err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
}

func (h *turnHook) OnResponse(context.Context, messages.Message) {
	h.done <- struct{}{}
}

func (h *turnHook) waitResponse(t *testing.T) {
	t.Helper()
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("no response event delivered")
	}
}

func TestRunTurnKeepsPartialOnStreamError(t *testing.T) {
	store := newListStore()
	prov := &scriptedProvider{rounds: [][]provider.StreamEvent{{
		provider.Chunk{ContentDelta: "partial answer "},
		provider.Error{Err: errors.New("connection reset")},
	}}}
	agent := newTestAgent(t, store, prov)
	hook := newTurnHook()

	final, err := agent.RunTurn(context.Background(), messages.User("Hello"), hook)
	require.NoError(t, err, "a mid-stream error must not end the turn")
	assert.Equal(t, "partial answer ", final.Content.Content)

	// system + user + partial assistant
	assert.Equal(t, 3, store.len("raiden:conversation"))

	hook.waitResponse(t)
	hook.mu.Lock()
	defer hook.mu.Unlock()
	require.Len(t, hook.errs, 1, "the interruption is still surfaced")
	assert.ErrorContains(t, hook.errs[0], "connection reset")
}

func TestRunTurnStreamErrorStillRunsTools(t *testing.T) {
	store := newListStore()
	prov := &scriptedProvider{rounds: [][]provider.StreamEvent{
		{
			provider.Chunk{ToolCalls: []provider.ToolCallDelta{{Index: 0, ID: "call_1", Name: "ping", Arguments: `{}`}}},
			provider.Error{Err: errors.New("connection reset")},
		},
		{
			provider.Chunk{ContentDelta: "pong received."},
		},
	}}

	var ran bool
	ping := tool.Must("ping", func(context.Context, tool.Args) (string, error) {
		ran = true
		return "pong", nil
	})
	agent := newTestAgent(t, store, prov, ping)

	final, err := agent.RunTurn(context.Background(), messages.User("ping?"), nil)
	require.NoError(t, err)
	assert.True(t, ran, "finalized tool calls execute despite the interruption")
	assert.Equal(t, "pong received.", final.Content.Content)
}

func TestRunTurnRequestErrorAbortsTurn(t *testing.T) {
	store := newListStore()
	prov := &scriptedProvider{}
	agent := newTestAgent(t, store, prov)

	_, err := agent.RunTurn(context.Background(), messages.User("Hello"), nil)
	require.ErrorContains(t, err, "no scripted rounds left")
}

func TestRunTurnSecondRoundUsesBoundedWindow(t *testing.T) {
	store := newListStore()
	conv, err := memory.New(context.Background(), store, messages.System("sys"), memory.WithMaxTokens(100))
	require.NoError(t, err)

	prov := &scriptedProvider{rounds: [][]provider.StreamEvent{
		{
			provider.Chunk{ToolCalls: []provider.ToolCallDelta{{Index: 0, ID: "call_1", Name: "big_fetch", Arguments: `{}`}}},
		},
		{
			provider.Chunk{ContentDelta: "summarized."},
		},
	}}

	bigFetch := tool.Must("big_fetch", func(context.Context, tool.Args) (string, error) {
		return strings.Repeat("x", 2000), nil
	})
	registry := tool.NewRegistry()
	registry.Add(bigFetch)

	agent, err := New(
		WithModel(&scriptedModel{prov: prov}),
		WithConversation(conv),
		WithRegistry(registry),
	)
	require.NoError(t, err)

	_, err = agent.RunTurn(context.Background(), messages.User("fetch everything"), nil)
	require.NoError(t, err)

	// the oversized tool result blows the 100-token budget, so the follow-up
	// window trims back to the system message instead of carrying it verbatim
	require.Len(t, prov.params, 2)
	second := prov.params[1].Messages
	require.NotEmpty(t, second)
	assert.Equal(t, messages.RoleSystem, second[0].Role)
	for _, msg := range second {
		assert.NotEqual(t, messages.RoleTool, msg.Role)
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New()
	require.ErrorContains(t, err, "model")

	store := newListStore()
	conv, err := memory.New(context.Background(), store, messages.System("sys"))
	require.NoError(t, err)

	_, err = New(WithConversation(conv))
	require.ErrorContains(t, err, "model")

	_, err = New(WithModel(&scriptedModel{prov: &scriptedProvider{}}))
	require.ErrorContains(t, err, "conversation")
}
