package tools

import (
	"context"
	"fmt"
	"strings"
)

// MemoryStore is the persistence surface the memory tools write to and read
// from. Implemented by the sqlite-backed store in internal/memstore.
type MemoryStore interface {
	Remember(ctx context.Context, sessionID, content string) error
	Recall(ctx context.Context, sessionID, query string, limit int) ([]string, error)
}

// RememberTool saves a fact to long-term memory. Memories are scoped to the
// calling session, taken from the execution context.
type RememberTool struct {
	Store MemoryStore
}

func (t *RememberTool) Name() string { return "remember" }

func (t *RememberTool) Description() string {
	return "Save a fact to long-term memory for later recall."
}

func (t *RememberTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": "The fact to remember",
			},
		},
		"required": []string{"content"},
	}
}

func (t *RememberTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	content := strings.TrimSpace(GetString(params, "content", ""))
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}
	if err := t.Store.Remember(ctx, SessionFrom(ctx), content); err != nil {
		return nil, fmt.Errorf("save memory: %w", err)
	}
	return "Remembered.", nil
}

// RecallTool retrieves facts from long-term memory by keyword.
type RecallTool struct {
	Store MemoryStore
}

func (t *RecallTool) Name() string { return "recall" }

func (t *RecallTool) Description() string {
	return "Search long-term memory for facts matching a keyword query."
}

func (t *RecallTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Keywords to search for",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results (default 5)",
			},
		},
		"required": []string{"query"},
	}
}

func (t *RecallTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	query := strings.TrimSpace(GetString(params, "query", ""))
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	limit := GetInt(params, "limit", 5)

	results, err := t.Store.Recall(ctx, SessionFrom(ctx), query, limit)
	if err != nil {
		return nil, fmt.Errorf("search memory: %w", err)
	}
	if len(results) == 0 {
		return "No matching memories found.", nil
	}
	return strings.Join(results, "\n"), nil
}
