// Package llmtest provides a scripted completion client for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/capitalize-ai/leasing-assistant/internal/llm"
)

// Reply is one scripted completion outcome.
type Reply struct {
	Content   string
	ToolCalls []llm.ToolCall
	Err       error
}

// Text scripts a plain text completion.
func Text(s string) Reply { return Reply{Content: s} }

// JSON scripts a completion whose content is v encoded as JSON.
func JSON(v any) Reply {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Reply{Content: string(b)}
}

// Calls scripts a completion that requests tool calls.
func Calls(calls ...llm.ToolCall) Reply { return Reply{ToolCalls: calls} }

// Call builds a tool call with args encoded as JSON.
func Call(id, name string, args any) llm.ToolCall {
	b, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return llm.ToolCall{ID: id, Name: name, Arguments: string(b)}
}

// Fail scripts a completion error.
func Fail(err error) Reply { return Reply{Err: err} }

// ScriptedClient replays replies in order and records every request.
type ScriptedClient struct {
	mu       sync.Mutex
	replies  []Reply
	requests []llm.CompletionRequest
}

// New creates a client that answers with replies in order.
func New(replies ...Reply) *ScriptedClient {
	return &ScriptedClient{replies: replies}
}

// Complete returns the next scripted reply.
func (c *ScriptedClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := *req
	snapshot.Messages = append([]llm.ChatMessage(nil), req.Messages...)
	c.requests = append(c.requests, snapshot)

	if len(c.replies) == 0 {
		return nil, fmt.Errorf("llmtest: no scripted reply for call %d", len(c.requests))
	}
	next := c.replies[0]
	c.replies = c.replies[1:]
	if next.Err != nil {
		return nil, next.Err
	}
	return &llm.CompletionResponse{
		Content:   next.Content,
		ToolCalls: next.ToolCalls,
		Model:     "scripted",
		TokensIn:  len(req.Messages),
		TokensOut: len(next.Content),
	}, nil
}

// Name returns the provider name.
func (c *ScriptedClient) Name() string { return "scripted" }

// Models returns available models.
func (c *ScriptedClient) Models() []string { return []string{"scripted"} }

// Requests returns copies of the requests seen so far.
func (c *ScriptedClient) Requests() []llm.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.CompletionRequest(nil), c.requests...)
}

// Remaining reports how many scripted replies were not consumed.
func (c *ScriptedClient) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.replies)
}
