package provider

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements LLMProvider using the Gemini API.
type GeminiProvider struct {
	apiKey       string
	defaultModel string
}

// NewGeminiProvider creates a new Gemini backend adapter.
func NewGeminiProvider(apiKey, defaultModel string) *GeminiProvider {
	if defaultModel == "" {
		defaultModel = "gemini-2.5-pro"
	}
	return &GeminiProvider{
		apiKey:       apiKey,
		defaultModel: defaultModel,
	}
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string { return "gemini" }

// DefaultModel returns the configured default model.
func (p *GeminiProvider) DefaultModel() string { return p.defaultModel }

// Chat sends a completion request to the Gemini API.
func (p *GeminiProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if system := systemPrompt(req.Messages); system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: p.convertTools(req.Tools)}}
	}

	contents := p.convertMessages(req.Messages)
	resp, err := client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: no candidates in response")
	}

	candidate := resp.Candidates[0]
	result := &ChatResponse{
		FinishReason: string(candidate.FinishReason),
	}
	if resp.UsageMetadata != nil {
		result.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	var text strings.Builder
	callIndex := 0
	for _, part := range candidate.Content.Parts {
		switch {
		case part.Text != "":
			text.WriteString(part.Text)
			emitChunk(req, part.Text)
		case part.FunctionCall != nil:
			// Gemini function calls carry no ID; synthesize a stable one so
			// tool results can be correlated on the next turn.
			callIndex++
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        fmt.Sprintf("call_%s_%d", part.FunctionCall.Name, callIndex),
				Name:      part.FunctionCall.Name,
				Arguments: part.FunctionCall.Args,
			})
		}
	}
	result.Content = text.String()
	return result, nil
}

// convertMessages converts uniform messages to Gemini contents. System
// messages are carried as SystemInstruction; tool results become
// FunctionResponse parts keyed by the tool name recovered from the
// synthesized call ID.
func (p *GeminiProvider) convertMessages(messages []Message) []*genai.Content {
	var result []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			continue
		case "tool":
			result = append(result, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{genai.NewPartFromFunctionResponse(
					toolNameFromCallID(msg.ToolCallID),
					map[string]any{"result": msg.Content},
				)},
			})
		case "assistant":
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, genai.NewPartFromFunctionCall(tc.Name, tc.Arguments))
			}
			if len(parts) == 0 {
				continue
			}
			result = append(result, &genai.Content{Role: genai.RoleModel, Parts: parts})
		default:
			result = append(result, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return result
}

// convertTools converts uniform tool definitions to Gemini function
// declarations.
func (p *GeminiProvider) convertTools(tools []ToolDefinition) []*genai.FunctionDeclaration {
	result := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		result = append(result, &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			Parameters:  convertSchema(tool.Function.Parameters),
		})
	}
	return result
}

// convertSchema converts a JSON schema map into a genai.Schema, recursing
// into properties and array items.
func convertSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	result := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		result.Type = genaiType(t)
	}
	if desc, ok := schema["description"].(string); ok {
		result.Description = desc
	}
	if enum, ok := schema["enum"].([]any); ok {
		for _, v := range enum {
			if s, ok := v.(string); ok {
				result.Enum = append(result.Enum, s)
			}
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		result.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				result.Properties[name] = convertSchema(propMap)
			}
		}
	}
	if required, ok := schema["required"].([]any); ok {
		for _, v := range required {
			if s, ok := v.(string); ok {
				result.Required = append(result.Required, s)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		result.Items = convertSchema(items)
	}
	return result
}

func genaiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

// toolNameFromCallID recovers the tool name from a synthesized call ID of the
// form "call_<name>_<n>".
func toolNameFromCallID(id string) string {
	trimmed := strings.TrimPrefix(id, "call_")
	if i := strings.LastIndex(trimmed, "_"); i > 0 {
		return trimmed[:i]
	}
	return trimmed
}
