package tools

import (
	"context"
	"testing"
)

type fakeTool struct {
	name string
}

func (t *fakeTool) Name() string                { return t.name }
func (t *fakeTool) Description() string         { return "fake tool" }
func (t *fakeTool) Parameters() map[string]any  { return map[string]any{"type": "object"} }
func (t *fakeTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	return "ok", nil
}

func TestRegistryRejectsNonCanonicalNames(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeTool{name: "ReadFile"}); err == nil {
		t.Fatal("expected error for non-canonical name")
	}
	if err := r.Register(&fakeTool{name: "read_file"}); err != nil {
		t.Fatalf("unexpected error for canonical name: %v", err)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeTool{name: "exec"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := r.Register(&fakeTool{name: "exec"}); err == nil {
		t.Fatal("expected error for duplicate registration")
	}
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"web_fetch", "exec", "read_file"} {
		if err := r.Register(&fakeTool{name: name}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	defs := r.Definitions()
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	want := []string{"exec", "read_file", "web_fetch"}
	for i, def := range defs {
		if def.Function.Name != want[i] {
			t.Errorf("definition %d = %s, want %s", i, def.Function.Name, want[i])
		}
		if def.Type != "function" {
			t.Errorf("definition %d type = %s, want function", i, def.Type)
		}
	}
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Execute(context.Background(), "missing", nil); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestParamHelpers(t *testing.T) {
	params := map[string]any{
		"str":   "value",
		"int":   float64(7),
		"bool":  true,
		"wrong": 12,
	}
	if got := GetString(params, "str", "d"); got != "value" {
		t.Errorf("GetString = %q", got)
	}
	if got := GetString(params, "missing", "d"); got != "d" {
		t.Errorf("GetString default = %q", got)
	}
	if got := GetInt(params, "int", 0); got != 7 {
		t.Errorf("GetInt = %d", got)
	}
	if got := GetBool(params, "bool", false); !got {
		t.Error("GetBool = false")
	}
	if got := GetString(params, "wrong", "d"); got != "d" {
		t.Errorf("GetString on non-string = %q", got)
	}
}

func TestSessionContext(t *testing.T) {
	ctx := WithSession(context.Background(), "sess-1")
	if got := SessionFrom(ctx); got != "sess-1" {
		t.Errorf("SessionFrom = %q", got)
	}
	if got := SessionFrom(context.Background()); got != "" {
		t.Errorf("SessionFrom on bare context = %q", got)
	}
}
