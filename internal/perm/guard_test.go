package perm

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestGuard(t *testing.T, homeRoot string) (*Guard, *Store) {
	t.Helper()
	store := newTestStore(t)
	return NewGuard(store, homeRoot), store
}

func TestGuardOutsideHomeRootDenied(t *testing.T) {
	guard, _ := newTestGuard(t, "/home/u")

	decision, err := guard.Check("write_file", "/etc/passwd")
	if err != nil {
		t.Fatal(err)
	}
	if decision.Allowed || decision.NeedsAuthorization {
		t.Errorf("decision = %+v", decision)
	}
	if decision.Reason == "" {
		t.Error("confinement denial carries no reason")
	}
}

func TestGuardHomeRootItselfInside(t *testing.T) {
	guard, store := newTestGuard(t, "/home/u")
	if err := store.SetPermission("write_file", "/home/u", true); err != nil {
		t.Fatal(err)
	}

	decision, err := guard.Check("write_file", "/home/u/notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Allowed {
		t.Errorf("decision = %+v", decision)
	}
}

func TestGuardAbsentNeedsAuthorization(t *testing.T) {
	guard, _ := newTestGuard(t, "/home/u")

	decision, err := guard.Check("write_file", "/home/u/proj/file.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !decision.NeedsAuthorization || decision.Allowed {
		t.Errorf("decision = %+v", decision)
	}
	if decision.TargetDir != "/home/u/proj/" {
		t.Errorf("target dir = %q", decision.TargetDir)
	}
}

func TestGuardDirectoryIsTheUnit(t *testing.T) {
	guard, store := newTestGuard(t, "/home/u")
	if err := store.SetPermission("write_file", "/home/u/proj", true); err != nil {
		t.Fatal(err)
	}

	// A grant on the directory covers every file inside it.
	for _, target := range []string{
		"/home/u/proj/a.txt",
		"/home/u/proj/b.txt",
	} {
		decision, err := guard.Check("write_file", target)
		if err != nil {
			t.Fatal(err)
		}
		if !decision.Allowed {
			t.Errorf("Check(%q) = %+v", target, decision)
		}
	}

	// But not files in a subdirectory without an ancestor walk hit elsewhere.
	decision, err := guard.Check("write_file", "/home/u/other/c.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !decision.NeedsAuthorization {
		t.Errorf("decision = %+v", decision)
	}
}

func TestGuardDenialViaAncestorReason(t *testing.T) {
	guard, store := newTestGuard(t, "/home/u")
	if err := store.SetPermission("exec", "/home/u/secrets", false); err != nil {
		t.Fatal(err)
	}

	decision, err := guard.Check("exec", "/home/u/secrets/deep/run.sh")
	if err != nil {
		t.Fatal(err)
	}
	if decision.Allowed || decision.NeedsAuthorization {
		t.Errorf("decision = %+v", decision)
	}
	if decision.Reason == "" {
		t.Error("ancestor denial carries no reason")
	}
}

func TestGuardRelativeTraversalCleaned(t *testing.T) {
	guard, _ := newTestGuard(t, "/home/u")

	// Traversal out of the root is caught after cleaning.
	decision, err := guard.Check("write_file", "/home/u/proj/../../../etc/passwd")
	if err != nil {
		t.Fatal(err)
	}
	if decision.Allowed || decision.NeedsAuthorization {
		t.Errorf("traversal escaped confinement: %+v", decision)
	}
}

func TestGuardDirectoryTargetIsItsOwnUnit(t *testing.T) {
	home := t.TempDir()
	store := newTestStore(t)
	guard := NewGuard(store, home)

	workspace := filepath.Join(home, "workspace")
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		t.Fatal(err)
	}

	decision, err := guard.Check("exec", workspace)
	if err != nil {
		t.Fatal(err)
	}
	if !decision.NeedsAuthorization {
		t.Fatalf("decision = %+v", decision)
	}
	if decision.TargetDir != NormalizeDir(workspace) {
		t.Errorf("target dir = %q, want the directory itself", decision.TargetDir)
	}

	// A grant for the workspace must not leak to siblings via its parent.
	if err := store.SetPermission("exec", workspace, true); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(home, "other")
	if err := os.MkdirAll(other, 0o755); err != nil {
		t.Fatal(err)
	}

	decision, err = guard.Check("exec", workspace)
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Allowed {
		t.Errorf("workspace decision = %+v", decision)
	}
	decision, err = guard.Check("exec", other)
	if err != nil {
		t.Fatal(err)
	}
	if !decision.NeedsAuthorization {
		t.Errorf("sibling decision = %+v", decision)
	}
}

func TestGuardFileTargetUsesParent(t *testing.T) {
	home := t.TempDir()
	store := newTestStore(t)
	guard := NewGuard(store, home)

	proj := filepath.Join(home, "proj")
	if err := os.MkdirAll(proj, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(proj, "notes.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	decision, err := guard.Check("write_file", file)
	if err != nil {
		t.Fatal(err)
	}
	if decision.TargetDir != NormalizeDir(proj) {
		t.Errorf("target dir = %q, want the enclosing directory", decision.TargetDir)
	}
}

func TestGuardPendingOperationLifecycle(t *testing.T) {
	guard, _ := newTestGuard(t, "/home/u")

	op := &PendingOperation{
		RequestID: "auth_1",
		SessionID: "s1",
		Tool:      "write_file",
		TargetDir: "/home/u/proj/",
		Params:    map[string]any{"path": filepath.Join("/home/u/proj", "f.txt")},
	}
	guard.StorePendingOperation(op)

	got, ok := guard.PendingOperationFor("auth_1")
	if !ok || got.Tool != "write_file" || got.SessionID != "s1" {
		t.Errorf("got %+v, ok=%v", got, ok)
	}

	guard.ClearPendingOperation("auth_1")
	if _, ok := guard.PendingOperationFor("auth_1"); ok {
		t.Error("cleared operation still present")
	}
	if _, ok := guard.PendingOperationFor("auth_missing"); ok {
		t.Error("unknown request ID reported present")
	}
}
