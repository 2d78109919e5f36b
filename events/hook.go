package events

import (
	"context"

	"github.com/zester4/RaidenAlpha/messages"
)

// Hook receives the notifications of a conversation turn. Implementations
// render them (console output) or record them (tests); methods must not
// block, subscribers forwarding to slow hooks get dropped.
type Hook interface {
	OnAssistantChunk(ctx context.Context, delta string)
	OnToolCallsStarted(ctx context.Context, count int)
	OnToolResult(ctx context.Context, callID, toolName, content string)
	OnResponse(ctx context.Context, msg messages.Message)
	OnError(ctx context.Context, err error)
}

// NoopHook discards all notifications. Embed it to implement only the
// methods a consumer cares about.
type NoopHook struct{}

var _ Hook = NoopHook{}

func (NoopHook) OnAssistantChunk(context.Context, string) {}

func (NoopHook) OnToolCallsStarted(context.Context, int) {}

func (NoopHook) OnToolResult(context.Context, string, string, string) {}

func (NoopHook) OnResponse(context.Context, messages.Message) {}

func (NoopHook) OnError(context.Context, error) {}
