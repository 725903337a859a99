package generate

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
)

var _ Streamer = (*OpenAIService)(nil)

const (
	oaiFinishReasonStop          = "stop"
	oaiFinishReasonLength        = "length"
	oaiFinishReasonContentFilter = "content_filter"
)

// OpenAIService implements Streamer on top of an OpenAI-compatible chat
// completion API. It serves single-result chat modes as an alternative
// backend; media and structured modes stay on Gemini.
type OpenAIService struct {
	Client *openai.Client

	Model string
}

func (g *OpenAIService) Stream(ctx context.Context, req Request) (Stream, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.Model),
	}
	if req.System != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(req.System))
	}
	params.Messages = append(params.Messages, openai.UserMessage(req.Prompt))
	if req.Temperature != 0 {
		params.Temperature = openai.Float(float64(req.Temperature))
	}
	if req.MaxTokens != 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	b := NewStreamBuilder(32)
	go func() {
		if err := oaiPull(b, g.Client.Chat.Completions.NewStreaming(ctx, params)); err != nil {
			b.Abort(err)
		}
	}()
	return b.Stream(), nil
}

// oaiPull drains a chat completion SSE stream into the builder, sticking to
// the first choice index seen.
func oaiPull(b *StreamBuilder, stream *ssestream.Stream[openai.ChatCompletionChunk]) error {
	var index int64

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		var sel *openai.ChatCompletionChunkChoice
		if index == 0 {
			index = chunk.Choices[0].Index
			sel = &chunk.Choices[0]
		} else {
			for _, c := range chunk.Choices {
				if c.Index == index {
					sel = &c
					break
				}
			}
			if sel == nil {
				continue
			}
		}
		if s := sel.Delta.Content; s != "" {
			if err := b.Add(s); err != nil {
				return err
			}
		}
		switch sel.FinishReason {
		case oaiFinishReasonStop:
			return b.Done()
		case oaiFinishReasonLength:
			return b.Truncated()
		case oaiFinishReasonContentFilter:
			return b.Blocked(sel.Delta.Refusal)
		}
		if s := sel.Delta.Refusal; s != "" {
			return b.Blocked(s)
		}
	}
	if err := stream.Err(); err != nil {
		return err
	}
	return b.Done()
}
