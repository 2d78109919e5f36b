package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/zester4/RaidenAlpha/messages"
	"github.com/zester4/RaidenAlpha/provider"
)

type Provider struct {
	client *openai.Client
}

func New(options ...option.RequestOption) *Provider {
	client := openai.NewClient(options...)
	return &Provider{
		client: client,
	}
}

func (p *Provider) buildRequest(params *provider.CompletionParams) (openai.ChatCompletionNewParams, error) {
	result, err := messagesToOpenAI(params.Messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	tools := make([]openai.ChatCompletionToolParam, len(params.Tools))
	for i, def := range params.Tools {
		jv, err := toDynamicJSON(def.Parameters)
		if err != nil {
			return openai.ChatCompletionNewParams{}, fmt.Errorf("failed to convert schema for tool %s: %w", def.Name, err)
		}

		fd := openai.FunctionDefinitionParam{
			Name:       openai.String(def.Name),
			Parameters: openai.F(shared.FunctionParameters(jv)),
		}
		if strings.TrimSpace(def.Description) != "" {
			fd.Description = openai.String(def.Description)
		}

		tools[i] = openai.ChatCompletionToolParam{
			Type:     openai.F(openai.ChatCompletionToolTypeFunction),
			Function: openai.F(fd),
		}
	}

	oaiParams := openai.ChatCompletionNewParams{
		Messages: openai.F(result),
		Model:    openai.F(params.Model.Name()),
		N:        openai.Int(1),
	}
	if len(tools) > 0 {
		oaiParams.Tools = openai.F(tools)
		oaiParams.ParallelToolCalls = openai.Bool(true)
	}

	return oaiParams, nil
}

func (p *Provider) ChatCompletion(ctx context.Context, params provider.CompletionParams) (<-chan provider.StreamEvent, error) {
	chatParams, err := p.buildRequest(&params)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	events := make(chan provider.StreamEvent, 10)
	go func() {
		defer close(events)
		if params.Stream {
			p.runStream(ctx, chatParams, events)
		} else {
			p.runOnce(ctx, chatParams, events)
		}
	}()
	return events, nil
}

func (p *Provider) runStream(ctx context.Context, params openai.ChatCompletionNewParams, events chan<- provider.StreamEvent) {
	strm := p.client.Chat.Completions.NewStreaming(ctx, params)

	if strm.Err() != nil {
		events <- provider.Error{
			Err:       strm.Err(),
			Timestamp: strfmt.DateTime(time.Now()),
		}
		strm.Close()
		return
	}

	// Ensure cleanup on all exit paths
	defer func() {
		strm.Close()
		if err := ctx.Err(); err != nil {
			events <- provider.Error{
				Err:       err,
				Timestamp: strfmt.DateTime(time.Now()),
			}
		}
	}()

	var notFirst bool
	for strm.Next() {
		if err := ctx.Err(); err != nil {
			return
		}

		if !notFirst {
			notFirst = true
			events <- provider.Delim{Delim: "start"}
		}

		chunk := strm.Current()
		if strm.Err() != nil {
			events <- provider.Error{
				Err:       strm.Err(),
				Timestamp: strfmt.DateTime(time.Now()),
			}
			return
		}

		events <- completionChunkToStreamEvent(&chunk)
	}

	if err := strm.Err(); err != nil {
		events <- provider.Error{
			Err:       err,
			Timestamp: strfmt.DateTime(time.Now()),
		}
		return
	}

	if notFirst && ctx.Err() == nil {
		events <- provider.Delim{Delim: "end"}
	}
}

func (p *Provider) runOnce(ctx context.Context, params openai.ChatCompletionNewParams, events chan<- provider.StreamEvent) {
	chat, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		events <- provider.Error{
			Err:       err,
			Timestamp: strfmt.DateTime(time.Now()),
		}
		return
	}

	events <- completionToStreamEvent(chat)
}

func messagesToOpenAI(history []messages.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, message := range history {
		switch message.Role {
		case messages.RoleSystem:
			result = append(result, openai.SystemMessage(message.Content.Text()))

		case messages.RoleUser:
			if message.Content.Content != "" {
				result = append(result, openai.UserMessageParts(openai.TextPart(message.Content.Content)))
				continue
			}
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(message.Content.Parts))
			for _, part := range message.Content.Parts {
				switch part := part.(type) {
				case messages.TextContentPart:
					parts = append(parts, openai.ChatCompletionContentPartTextParam{
						Text: openai.String(part.Text),
						Type: openai.F(openai.ChatCompletionContentPartTextTypeText),
					})
				case messages.FileContentPart:
					converted, err := filePartToOpenAI(part)
					if err != nil {
						return nil, err
					}
					parts = append(parts, converted)
				}
			}
			result = append(result, openai.UserMessageParts(parts...))

		case messages.RoleAssistant:
			if message.HasToolCalls() {
				tcd := make([]openai.ChatCompletionMessageToolCallParam, len(message.ToolCalls))
				for i, tc := range message.ToolCalls {
					tcd[i] = openai.ChatCompletionMessageToolCallParam{
						ID:   openai.String(tc.ID),
						Type: openai.F(openai.ChatCompletionMessageToolCallTypeFunction),
						Function: openai.F(openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      openai.String(tc.Name),
							Arguments: openai.String(tc.Arguments),
						}),
					}
				}
				result = append(result, openai.ChatCompletionMessageParam{
					Role:      openai.F(openai.ChatCompletionMessageParamRoleAssistant),
					ToolCalls: openai.F[any](tcd),
				})
				continue
			}
			result = append(result, openai.AssistantMessage(message.Content.Text()))

		case messages.RoleTool:
			result = append(result, openai.ToolMessage(message.ToolCallID, message.Content.Text()))
		}
	}
	return result, nil
}

// filePartToOpenAI maps a file attachment onto the chat API's content parts.
// Images travel as image_url parts (data URI or external URL); anything else
// has no native part type in the completions API and is rejected upstream at
// attachment time.
func filePartToOpenAI(part messages.FileContentPart) (openai.ChatCompletionContentPartUnionParam, error) {
	if !strings.HasPrefix(part.MIME, "image/") {
		return nil, fmt.Errorf("unsupported attachment type %q", part.MIME)
	}
	url := part.URL
	if url == "" {
		url = part.Data
	}
	return openai.ChatCompletionContentPartImageParam{
		ImageURL: openai.F(openai.ChatCompletionContentPartImageImageURLParam{
			URL: openai.String(url),
		}),
		Type: openai.F(openai.ChatCompletionContentPartImageTypeImageURL),
	}, nil
}

func completionChunkToStreamEvent(chunk *openai.ChatCompletionChunk) provider.StreamEvent {
	if len(chunk.Choices) == 0 {
		return provider.Delim{Delim: "empty"}
	}

	choice := chunk.Choices[0].Delta
	event := provider.Chunk{
		ContentDelta: choice.Content,
		Timestamp:    strfmt.DateTime(time.Now()),
	}
	if len(choice.ToolCalls) > 0 {
		tcd := make([]provider.ToolCallDelta, len(choice.ToolCalls))
		for i, tc := range choice.ToolCalls {
			tcd[i] = provider.ToolCallDelta{
				Index:     int(tc.Index),
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			}
		}
		event.ToolCalls = tcd
	}
	return event
}

func completionToStreamEvent(chat *openai.ChatCompletion) provider.StreamEvent {
	if len(chat.Choices) == 0 {
		return provider.Delim{Delim: "empty"}
	}

	choice := chat.Choices[0].Message
	event := provider.Chunk{
		ContentDelta: choice.Content,
		Timestamp:    strfmt.DateTime(time.Now()),
	}
	if len(choice.ToolCalls) > 0 {
		tcd := make([]provider.ToolCallDelta, len(choice.ToolCalls))
		for i, tc := range choice.ToolCalls {
			tcd[i] = provider.ToolCallDelta{
				Index:     i,
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			}
		}
		event.ToolCalls = tcd
	}
	return event
}

// toDynamicJSON round-trips a schema through JSON into the loosely typed map
// the SDK's FunctionParameters expects.
func toDynamicJSON(schema *jsonschema.Schema) (map[string]any, error) {
	if schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var jv map[string]any
	if err := json.Unmarshal(raw, &jv); err != nil {
		return nil, err
	}
	return jv, nil
}
