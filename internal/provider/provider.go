// Package provider implements the uniform backend adapter contract and the
// five concrete LLM backend integrations.
package provider

import (
	"context"
)

// LLMProvider is the uniform contract every backend adapter implements.
// Adapters own their retry policy for transient failures; the conversation
// loop never retries a backend call itself.
type LLMProvider interface {
	// Chat sends a completion request and returns the normalized response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	// Name returns the stable lowercase provider identifier.
	Name() string
	// DefaultModel returns the configured default model.
	DefaultModel() string
}

// ChatRequest contains the parameters for a chat completion request.
type ChatRequest struct {
	Messages    []Message
	Tools       []ToolDefinition
	Model       string
	MaxTokens   int
	Temperature float64
	// OnChunk, when set, receives text as it is produced so the gateway can
	// forward it to the client without waiting for the full response.
	OnChunk func(text string)
}

// ChatResponse contains the normalized response from a backend.
type ChatResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
}

// Message represents a chat message in the uniform format.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall represents a tool invocation requested by the backend. Name keeps
// the backend's own spelling; canonicalization happens at dispatch time.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolDefinition defines a tool offered to the backend.
type ToolDefinition struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef describes a callable function.
type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Usage contains token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func emitChunk(req *ChatRequest, text string) {
	if req.OnChunk != nil && text != "" {
		req.OnChunk(text)
	}
}
