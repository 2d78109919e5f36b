package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/zester4/RaidenAlpha/events"
	"github.com/zester4/RaidenAlpha/messages"
)

var glam *glamour.TermRenderer

func init() {
	var err error
	glam, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	if err != nil {
		panic(err)
	}
}

// consoleHook renders turn progress to the terminal: streamed text as it
// arrives, tool activity in yellow, and a markdown render of the final
// response when nothing was streamed for it.
type consoleHook struct {
	out io.Writer

	mu       sync.Mutex
	streamed bool
	done     chan struct{}
}

func newConsoleHook(out io.Writer) *consoleHook {
	return &consoleHook{
		out:  out,
		done: make(chan struct{}, 4),
	}
}

func (c *consoleHook) OnAssistantChunk(_ context.Context, delta string) {
	c.mu.Lock()
	if !c.streamed {
		c.streamed = true
		fmt.Fprint(c.out, color.MagentaString("Raiden")+": ")
	}
	fmt.Fprint(c.out, delta)
	c.mu.Unlock()
}

func (c *consoleHook) OnToolCallsStarted(_ context.Context, count int) {
	c.mu.Lock()
	plural := ""
	if count != 1 {
		plural = "s"
	}
	fmt.Fprintln(c.out, color.YellowString("Using %d tool%s...", count, plural))
	c.mu.Unlock()
}

func (c *consoleHook) OnToolResult(_ context.Context, _, toolName, content string) {
	c.mu.Lock()
	if len(content) > 120 {
		content = content[:120] + "..."
	}
	fmt.Fprintf(c.out, "%s: %s\n", color.YellowString(toolName), content)
	c.mu.Unlock()
}

func (c *consoleHook) OnResponse(_ context.Context, msg messages.Message) {
	c.mu.Lock()
	if c.streamed {
		fmt.Fprintln(c.out)
	} else if text := msg.Content.Text(); text != "" {
		out, _ := glam.Render(text)
		fmt.Fprint(c.out, color.MagentaString("Raiden")+": ")
		fmt.Fprintln(c.out, out)
	}
	c.streamed = false
	c.mu.Unlock()
	c.done <- struct{}{}
}

func (c *consoleHook) OnError(_ context.Context, err error) {
	c.mu.Lock()
	fmt.Fprintln(c.out, color.RedString("Error: %v", err))
	c.streamed = false
	c.mu.Unlock()
	c.done <- struct{}{}
}

// waitTurn blocks until the turn's final response or error was rendered, so
// the next prompt doesn't interleave with pending output.
func (c *consoleHook) waitTurn() {
	select {
	case <-c.done:
	case <-time.After(3 * time.Second):
	}
}

var _ events.Hook = (*consoleHook)(nil)
