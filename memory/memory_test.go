package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zester4/RaidenAlpha/messages"
	"github.com/zester4/RaidenAlpha/vector"
)

type fakeStore struct {
	mu    sync.Mutex
	lists map[string][]string
	err   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{lists: map[string][]string{}}
}

func (s *fakeStore) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeStore) RPush(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.lists[key] = append(s.lists[key], value)
	return nil
}

func (s *fakeStore) LPush(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.lists[key] = append([]string{value}, s.lists[key]...)
	return nil
}

func (s *fakeStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
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

func (s *fakeStore) LLen(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return int64(len(s.lists[key])), nil
}

func (s *fakeStore) LIndex(_ context.Context, key string, index int64) (string, error) {
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

type fakeIndex struct {
	docs chan vector.Document
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: make(chan vector.Document, 16)}
}

func (f *fakeIndex) Upsert(_ context.Context, docs ...vector.Document) error {
	for _, doc := range docs {
		f.docs <- doc
	}
	return nil
}

func (f *fakeIndex) Query(context.Context, string, int) ([]vector.Match, error) {
	return nil, nil
}

func (f *fakeIndex) IsReady(context.Context) bool { return true }

func TestNewSeedsEmptyLog(t *testing.T) {
	store := newFakeStore()
	system := messages.System("You are helpful.")

	conv, err := New(context.Background(), store, system)
	require.NoError(t, err)

	raw, err := store.LIndex(context.Background(), defaultKey, 0)
	require.NoError(t, err)
	assert.Equal(t, conv.systemRaw, raw)
}

func TestNewPrependsChangedSystem(t *testing.T) {
	store := newFakeStore()
	old := messages.System("Old prompt.")
	_, err := New(context.Background(), store, old)
	require.NoError(t, err)

	updated := messages.System("New prompt.")
	conv, err := New(context.Background(), store, updated)
	require.NoError(t, err)

	head, err := store.LIndex(context.Background(), defaultKey, 0)
	require.NoError(t, err)
	assert.Equal(t, conv.systemRaw, head)

	length, err := store.LLen(context.Background(), defaultKey)
	require.NoError(t, err)
	assert.EqualValues(t, 2, length)
}

func TestNewKeepsMatchingSystem(t *testing.T) {
	store := newFakeStore()
	system := messages.System("Stable prompt.")
	_, err := New(context.Background(), store, system)
	require.NoError(t, err)
	_, err = New(context.Background(), store, system)
	require.NoError(t, err)

	length, err := store.LLen(context.Background(), defaultKey)
	require.NoError(t, err)
	assert.EqualValues(t, 1, length)
}

func TestAddPersistsMessage(t *testing.T) {
	store := newFakeStore()
	conv, err := New(context.Background(), store, messages.System("sys"))
	require.NoError(t, err)

	require.True(t, conv.Add(context.Background(), messages.User("Hello")))

	raw, err := store.LIndex(context.Background(), defaultKey, -1)
	require.NoError(t, err)
	var msg messages.Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	assert.Equal(t, messages.RoleUser, msg.Role)
	assert.Equal(t, "Hello", msg.Content.Content)
}

func TestAddReportsStoreFailure(t *testing.T) {
	store := newFakeStore()
	conv, err := New(context.Background(), store, messages.System("sys"))
	require.NoError(t, err)

	store.fail(errors.New("connection refused"))
	assert.False(t, conv.Add(context.Background(), messages.User("lost")))
}

func TestReadReturnsChronologicalWindow(t *testing.T) {
	store := newFakeStore()
	conv, err := New(context.Background(), store, messages.System("sys"))
	require.NoError(t, err)

	require.True(t, conv.Add(context.Background(), messages.User("Hello")))
	require.True(t, conv.Add(context.Background(), messages.Assistant("Hi", nil)))

	window := conv.Read(context.Background())
	require.Len(t, window, 3)
	assert.Equal(t, messages.RoleSystem, window[0].Role)
	assert.Equal(t, "Hello", window[1].Content.Content)
	assert.Equal(t, "Hi", window[2].Content.Content)
}

func TestReadHonorsTokenBudget(t *testing.T) {
	store := newFakeStore()
	conv, err := New(context.Background(), store, messages.System("sys"), WithMaxTokens(80))
	require.NoError(t, err)

	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	var newest messages.Message
	for i := 0; i < 5; i++ {
		newest = messages.User(string(long))
		require.True(t, conv.Add(context.Background(), newest))
	}

	window := conv.Read(context.Background())
	require.NotEmpty(t, window)
	assert.Equal(t, messages.RoleSystem, window[0].Role)
	assert.Less(t, len(window), 6, "oldest messages must be trimmed")

	// the newest message always survives trimming
	last := window[len(window)-1]
	assert.Equal(t, newest.Content.Content, last.Content.Content)

	used := len(conv.systemRaw) / charsPerToken
	for _, msg := range window[1:] {
		raw, merr := json.Marshal(msg)
		require.NoError(t, merr)
		used += len(raw) / charsPerToken
	}
	assert.LessOrEqual(t, used, 80)
}

func TestReadDegradesToSystemOnly(t *testing.T) {
	store := newFakeStore()
	conv, err := New(context.Background(), store, messages.System("sys"))
	require.NoError(t, err)
	require.True(t, conv.Add(context.Background(), messages.User("Hello")))

	store.fail(errors.New("connection refused"))
	window := conv.Read(context.Background())
	require.Len(t, window, 1)
	assert.Equal(t, messages.RoleSystem, window[0].Role)
	assert.False(t, conv.Ready(context.Background()))
}

func TestAddMirrorsIntoVectorIndex(t *testing.T) {
	store := newFakeStore()
	index := newFakeIndex()
	conv, err := New(context.Background(), store, messages.System("sys"), WithVectorIndex(index))
	require.NoError(t, err)

	require.True(t, conv.Add(context.Background(), messages.User("Hello")))

	select {
	case doc := <-index.docs:
		assert.Equal(t, "User said: Hello", doc.Data)
		assert.Equal(t, "user", doc.Metadata["role"])
	case <-time.After(2 * time.Second):
		t.Fatal("expected a mirrored document")
	}
}

func TestMirrorSummary(t *testing.T) {
	assert.Equal(t, "User said: hi", mirrorSummary(messages.User("hi")))
	assert.Equal(t, "Assistant response: hey", mirrorSummary(messages.Assistant("hey", nil)))
	assert.Empty(t, mirrorSummary(messages.System("sys")))
	assert.Empty(t, mirrorSummary(messages.Assistant("", []messages.ToolCallRequest{{ID: "c1", Name: "x", Arguments: "{}"}})))

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'z'
	}
	summary := mirrorSummary(messages.ToolResult("call_9", string(long)))
	assert.Contains(t, summary, "Tool result (call_9): ")
	assert.Len(t, summary, len("Tool result (call_9): ")+mirrorSnippetLen)
}
