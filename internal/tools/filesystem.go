package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// ReadFileTool reads the contents of a file. Reads require a grant for the
// file's directory, the same as writes.
type ReadFileTool struct{}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file at the specified path."
}

func (t *ReadFileTool) TargetPath(params map[string]any) (string, bool) {
	path := GetString(params, "path", "")
	if path == "" {
		return "", false
	}
	return expandPath(path), true
}

func (t *ReadFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The path to the file to read",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	path := GetString(params, "path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	path = expandPath(path)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return string(content), nil
}

// WriteFileTool writes content to a file. Writes require a directory grant
// for the file's parent directory.
type WriteFileTool struct{}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Write content to a file at the specified path. Creates parent directories if needed."
}

func (t *WriteFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The path to the file to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The content to write to the file",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) TargetPath(params map[string]any) (string, bool) {
	path := GetString(params, "path", "")
	if path == "" {
		return "", false
	}
	return expandPath(path), true
}

func (t *WriteFileTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	path := GetString(params, "path", "")
	content := GetString(params, "content", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return map[string]any{
		"path":  path,
		"bytes": len(content),
	}, nil
}

// EditFileTool replaces an exact text fragment in a file.
type EditFileTool struct{}

func (t *EditFileTool) Name() string { return "edit_file" }

func (t *EditFileTool) Description() string {
	return "Replace an exact text fragment in a file. The old text must appear exactly once."
}

func (t *EditFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The path to the file to edit",
			},
			"old_text": map[string]any{
				"type":        "string",
				"description": "The exact text to replace",
			},
			"new_text": map[string]any{
				"type":        "string",
				"description": "The replacement text",
			},
		},
		"required": []string{"path", "old_text", "new_text"},
	}
}

func (t *EditFileTool) TargetPath(params map[string]any) (string, bool) {
	path := GetString(params, "path", "")
	if path == "" {
		return "", false
	}
	return expandPath(path), true
}

func (t *EditFileTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	path := GetString(params, "path", "")
	oldText := GetString(params, "old_text", "")
	newText := GetString(params, "new_text", "")
	if path == "" || oldText == "" {
		return nil, fmt.Errorf("path and old_text are required")
	}
	path = expandPath(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	content := string(raw)

	switch count := strings.Count(content, oldText); {
	case count == 0:
		return nil, fmt.Errorf("old_text not found in %s", path)
	case count > 1:
		return nil, fmt.Errorf("old_text appears %d times in %s, must be unique", count, path)
	}

	updated := strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return map[string]any{"path": path}, nil
}

// ListDirTool lists the entries of a directory.
type ListDirTool struct{}

func (t *ListDirTool) Name() string { return "list_dir" }

func (t *ListDirTool) Description() string {
	return "List the entries of a directory."
}

func (t *ListDirTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The path to the directory to list",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ListDirTool) TargetPath(params map[string]any) (string, bool) {
	path := GetString(params, "path", "")
	if path == "" {
		return "", false
	}
	return expandPath(path), true
}

func (t *ListDirTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	path := GetString(params, "path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	path = expandPath(path)

	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", path)
		}
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}
