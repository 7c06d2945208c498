// Package model defines the provider-neutral abstraction over hosted language
// models. The optimization pipeline talks to an opaque function from
// (instructions, messages, tools) to a reply; provider adapters live in the
// openai and anthropic subpackages.
//
// Calls are synchronous: one request, one reply. The system issues a single
// call at a time per agent, so streaming buys nothing here.
package model

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ToolCall is a function call requested by the model, unified across vendors
// so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON payload as produced by the provider
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a minimal JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Message is one turn of the conversation sent to the model.
//
// Roles: "user", "assistant" and "tool". System instructions travel in
// Request.Instructions, not as a message. Assistant messages may carry
// ToolCalls; tool messages answer one call identified by ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Text       string     `json:"text,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// UserMessage builds a user turn.
func UserMessage(text string) Message { return Message{Role: "user", Text: text} }

// AssistantMessage builds an assistant turn, optionally carrying tool calls.
func AssistantMessage(text string, calls ...ToolCall) Message {
	return Message{Role: "assistant", Text: text, ToolCalls: calls}
}

// ToolMessage builds a tool-result turn answering the call with the given id.
func ToolMessage(callID, result string) Message {
	return Message{Role: "tool", Text: result, ToolCallID: callID}
}

// Request captures the normalized model input produced by agents.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token statistics for a reply when the provider reports them.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Finish reasons normalized across providers.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
	FinishLength    = "length"
)

// Response is the model's reply to a Request.
type Response struct {
	Text         string      `json:"text"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface agents use to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model for tests. Replies are served
// from a FIFO queue; when the queue is empty a canned echo reply is produced.
// Safe for concurrent use.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	queue    []Response
	requests []Request
	err      error
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: "mock", SupportsTools: true}}
}

// EnqueueText queues a plain text reply.
func (m *MockModel) EnqueueText(text string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, Response{Text: text, FinishReason: FinishStop})
	return m
}

// EnqueueToolCall queues a reply requesting a single tool call.
func (m *MockModel) EnqueueToolCall(id, name, arguments string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, Response{
		ToolCalls:    []ToolCall{{ID: id, Name: name, Arguments: arguments}},
		FinishReason: FinishToolCalls,
	})
	return m
}

// FailWith makes every subsequent Generate call return err.
func (m *MockModel) FailWith(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Requests returns every request seen so far, oldest first.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		resp := m.queue[0]
		m.queue = m.queue[1:]
		return &resp, nil
	}
	var lastUser string
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			lastUser = msg.Text
		}
	}
	return &Response{
		Text:         fmt.Sprintf("Mock reply to: %s", firstLine(lastUser)),
		FinishReason: FinishStop,
	}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
