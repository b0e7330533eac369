package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteThenReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "note.txt")
	ctx := context.Background()

	write := &WriteFileTool{}
	raw, err := write.Execute(ctx, map[string]any{"path": path, "content": "hello"})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	result, ok := raw.(map[string]any)
	if !ok || result["bytes"] != 5 {
		t.Fatalf("unexpected write result: %#v", raw)
	}

	read := &ReadFileTool{}
	content, err := read.Execute(ctx, map[string]any{"path": path})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if content != "hello" {
		t.Errorf("read content = %q", content)
	}
}

func TestReadFileNotFound(t *testing.T) {
	read := &ReadFileTool{}
	_, err := read.Execute(context.Background(), map[string]any{"path": filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEditFileUniqueness(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("aaa bbb aaa"), 0o644); err != nil {
		t.Fatal(err)
	}
	edit := &EditFileTool{}
	ctx := context.Background()

	if _, err := edit.Execute(ctx, map[string]any{"path": path, "old_text": "aaa", "new_text": "x"}); err == nil {
		t.Fatal("expected error for ambiguous old_text")
	}
	if _, err := edit.Execute(ctx, map[string]any{"path": path, "old_text": "zzz", "new_text": "x"}); err == nil {
		t.Fatal("expected error for missing old_text")
	}
	if _, err := edit.Execute(ctx, map[string]any{"path": path, "old_text": "bbb", "new_text": "ccc"}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "aaa ccc aaa" {
		t.Errorf("file content = %q", data)
	}
}

func TestListDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "a"), 0o755); err != nil {
		t.Fatal(err)
	}

	list := &ListDirTool{}
	raw, err := list.Execute(context.Background(), map[string]any{"path": dir})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	lines := strings.Split(raw.(string), "\n")
	if len(lines) != 2 || lines[0] != "a/" || lines[1] != "b.txt" {
		t.Errorf("unexpected listing: %#v", lines)
	}
}

func TestTargetPathReportsParent(t *testing.T) {
	write := &WriteFileTool{}
	target, ok := write.TargetPath(map[string]any{"path": "/tmp/x/y.txt"})
	if !ok || target != "/tmp/x/y.txt" {
		t.Errorf("TargetPath = %q, %v", target, ok)
	}
	if _, ok := write.TargetPath(map[string]any{}); ok {
		t.Error("TargetPath without path should report false")
	}
}

// Read-only filesystem tools declare targets too, so reads go through the
// same permission checks as writes.
func TestReadOnlyToolsDeclareTargets(t *testing.T) {
	read := &ReadFileTool{}
	target, ok := read.TargetPath(map[string]any{"path": "/tmp/x/y.txt"})
	if !ok || target != "/tmp/x/y.txt" {
		t.Errorf("read TargetPath = %q, %v", target, ok)
	}
	if _, ok := read.TargetPath(map[string]any{}); ok {
		t.Error("read TargetPath without path should report false")
	}

	list := &ListDirTool{}
	target, ok = list.TargetPath(map[string]any{"path": "/tmp/x"})
	if !ok || target != "/tmp/x" {
		t.Errorf("list TargetPath = %q, %v", target, ok)
	}
	if _, ok := list.TargetPath(map[string]any{}); ok {
		t.Error("list TargetPath without path should report false")
	}
}

func TestExecToolExitCode(t *testing.T) {
	execTool := &ExecTool{Workspace: t.TempDir()}
	raw, err := execTool.Execute(context.Background(), map[string]any{"command": "echo out; echo err >&2; exit 3"})
	if err != nil {
		t.Fatalf("exec failed: %v", err)
	}
	result := raw.(map[string]any)
	if result["exit_code"] != 3 {
		t.Errorf("exit_code = %v", result["exit_code"])
	}
	if !strings.Contains(result["stdout"].(string), "out") {
		t.Errorf("stdout = %q", result["stdout"])
	}
	if !strings.Contains(result["stderr"].(string), "err") {
		t.Errorf("stderr = %q", result["stderr"])
	}
}

func TestExecToolTargetPath(t *testing.T) {
	execTool := &ExecTool{Workspace: "/home/user/ws"}
	target, ok := execTool.TargetPath(map[string]any{})
	if !ok || target != "/home/user/ws" {
		t.Errorf("TargetPath = %q, %v", target, ok)
	}
	target, ok = execTool.TargetPath(map[string]any{"working_dir": "/home/user/other"})
	if !ok || target != "/home/user/other" {
		t.Errorf("TargetPath override = %q, %v", target, ok)
	}
}
