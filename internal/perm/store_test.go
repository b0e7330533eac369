package perm

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNormalizeDir(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/home/u/proj", "/home/u/proj/"},
		{"/home/u/proj/", "/home/u/proj/"},
		{"/home/u/proj//sub/..", "/home/u/proj/"},
		{"/", "/"},
	}
	for _, tc := range cases {
		if got := NormalizeDir(tc.in); got != tc.want {
			t.Errorf("NormalizeDir(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCheckPermissionExactMatch(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetPermission("write_file", "/home/u/proj", true); err != nil {
		t.Fatal(err)
	}

	result, err := store.CheckPermission("write_file", "/home/u/proj")
	if err != nil {
		t.Fatal(err)
	}
	if result.State != StateAllowed || result.ViaAncestor {
		t.Errorf("result = %+v", result)
	}
}

func TestCheckPermissionAncestorFallback(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetPermission("write_file", "/home/u", true); err != nil {
		t.Fatal(err)
	}

	result, err := store.CheckPermission("write_file", "/home/u/proj/deep/dir")
	if err != nil {
		t.Fatal(err)
	}
	if result.State != StateAllowed || !result.ViaAncestor {
		t.Errorf("result = %+v", result)
	}
	if result.MatchedDir != "/home/u/" {
		t.Errorf("matched dir = %q", result.MatchedDir)
	}
}

func TestCheckPermissionDeepestAncestorWins(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetPermission("write_file", "/home/u", true); err != nil {
		t.Fatal(err)
	}
	if err := store.SetPermission("write_file", "/home/u/private", false); err != nil {
		t.Fatal(err)
	}

	result, err := store.CheckPermission("write_file", "/home/u/private/sub")
	if err != nil {
		t.Fatal(err)
	}
	if result.State != StateDenied {
		t.Errorf("deeper denial did not win: %+v", result)
	}

	result, err = store.CheckPermission("write_file", "/home/u/other")
	if err != nil {
		t.Fatal(err)
	}
	if result.State != StateAllowed {
		t.Errorf("sibling lost the broader grant: %+v", result)
	}
}

func TestCheckPermissionExactOverridesAncestor(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetPermission("exec", "/home/u", false); err != nil {
		t.Fatal(err)
	}
	if err := store.SetPermission("exec", "/home/u/sandbox", true); err != nil {
		t.Fatal(err)
	}

	result, err := store.CheckPermission("exec", "/home/u/sandbox")
	if err != nil {
		t.Fatal(err)
	}
	if result.State != StateAllowed || result.ViaAncestor {
		t.Errorf("exact grant lost to ancestor denial: %+v", result)
	}
}

func TestCheckPermissionAbsent(t *testing.T) {
	store := newTestStore(t)
	result, err := store.CheckPermission("write_file", "/home/u/proj")
	if err != nil {
		t.Fatal(err)
	}
	if result.State != StateAbsent {
		t.Errorf("result = %+v", result)
	}
}

func TestCheckPermissionToolScoped(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetPermission("write_file", "/home/u", true); err != nil {
		t.Fatal(err)
	}
	result, err := store.CheckPermission("exec", "/home/u")
	if err != nil {
		t.Fatal(err)
	}
	if result.State != StateAbsent {
		t.Errorf("grant leaked across tools: %+v", result)
	}
}

func TestSiblingPrefixNotConfused(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetPermission("write_file", "/home/u/proj", true); err != nil {
		t.Fatal(err)
	}
	// "/home/u/project" shares a string prefix but is not covered.
	result, err := store.CheckPermission("write_file", "/home/u/project")
	if err != nil {
		t.Fatal(err)
	}
	if result.State != StateAbsent {
		t.Errorf("sibling directory matched: %+v", result)
	}
}

func TestSetPermissionUpsert(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetPermission("exec", "/home/u", true); err != nil {
		t.Fatal(err)
	}
	if err := store.SetPermission("exec", "/home/u", false); err != nil {
		t.Fatal(err)
	}

	result, err := store.CheckPermission("exec", "/home/u")
	if err != nil {
		t.Fatal(err)
	}
	if result.State != StateDenied {
		t.Errorf("upsert did not replace: %+v", result)
	}

	records, err := store.ListPermissions()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("record count = %d, want 1", len(records))
	}
}

func TestRemovePermission(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetPermission("exec", "/home/u", true); err != nil {
		t.Fatal(err)
	}
	if err := store.RemovePermission("exec", "/home/u"); err != nil {
		t.Fatal(err)
	}
	if err := store.RemovePermission("exec", "/home/u"); err == nil {
		t.Error("removing a missing record should error")
	}
}

func TestMarkStalePending(t *testing.T) {
	store := newTestStore(t)
	if err := store.RecordPendingAuthorization("auth_1", "s1", "exec", "/home/u"); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkStalePending(); err != nil {
		t.Fatal(err)
	}
	// A resolved row must not be re-resolved.
	if err := store.ResolvePendingAuthorization("auth_1", "granted"); err != nil {
		t.Fatal(err)
	}

	var status string
	row := store.db.QueryRow(`SELECT status FROM pending_authorizations WHERE request_id = ?`, "auth_1")
	if err := row.Scan(&status); err != nil {
		t.Fatal(err)
	}
	if status != "timed_out" {
		t.Errorf("status = %q, want timed_out", status)
	}
}
