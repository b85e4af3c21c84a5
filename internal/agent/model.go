package agent

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

// ToolCallDelta is one streamed fragment of a tool invocation, tagged
// with the position index the provider assembles it under. Fragments may
// interleave across indices; within an index they arrive in order.
type ToolCallDelta struct {
	Index int
	ID    string
	Name  string
	Args  string
}

// Chunk is one streamed model delta: optional text, optional indexed
// tool-call fragments.
type Chunk struct {
	TextDelta string
	ToolCalls []ToolCallDelta
}

// ModelStream yields chunks from one in-flight model call.
type ModelStream interface {
	Next() bool
	Current() Chunk
	Err() error
	Close() error
}

type ModelRequest struct {
	Messages []openai.ChatCompletionMessageParamUnion
	Tools    []openai.ChatCompletionToolUnionParam
}

// ModelClient is the model-call collaborator. The driver only ever holds
// this interface so the loop is testable without a transport.
type ModelClient interface {
	Stream(ctx context.Context, req ModelRequest) (ModelStream, error)
	Complete(ctx context.Context, req ModelRequest) (string, error)
}

// OpenAIClient adapts an OpenAI-compatible chat completions API to
// ModelClient. The underlying client is constructed once at process
// start and shared; each call is independent.
type OpenAIClient struct {
	client openai.Client
	model  string
}

func NewOpenAIClient(client openai.Client, model string) *OpenAIClient {
	return &OpenAIClient{client: client, model: model}
}

func (c *OpenAIClient) Stream(ctx context.Context, req ModelRequest) (ModelStream, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: req.Messages,
		Tools:    req.Tools,
	})
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return &openaiStream{inner: stream}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req ModelRequest) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: req.Messages,
		Tools:    req.Tools,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	return resp.Choices[0].Message.Content, nil
}

type openaiStream struct {
	inner   *ssestream.Stream[openai.ChatCompletionChunk]
	current Chunk
}

func (s *openaiStream) Next() bool {
	if !s.inner.Next() {
		return false
	}
	chunk := s.inner.Current()
	out := Chunk{}
	if len(chunk.Choices) > 0 {
		delta := chunk.Choices[0].Delta
		out.TextDelta = delta.Content
		for _, tc := range delta.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, ToolCallDelta{
				Index: int(tc.Index),
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Args:  tc.Function.Arguments,
			})
		}
	}
	s.current = out
	return true
}

func (s *openaiStream) Current() Chunk {
	return s.current
}

func (s *openaiStream) Err() error {
	return s.inner.Err()
}

func (s *openaiStream) Close() error {
	return s.inner.Close()
}
