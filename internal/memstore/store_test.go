package memstore

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "mem.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRememberAndRecall(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	facts := []string{
		"the deploy key lives in the ops vault",
		"standup moved to 9:30 on Mondays",
		"the staging deploy runs from the release branch",
	}
	for _, fact := range facts {
		if err := store.Remember(ctx, "s1", fact); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Recall(ctx, "s1", "deploy", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("recall returned %d memories: %v", len(got), got)
	}
	// Newest first.
	if got[0] != facts[2] || got[1] != facts[0] {
		t.Errorf("order = %v", got)
	}
}

func TestRecallRequiresEveryKeyword(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Remember(ctx, "s1", "the deploy key lives in the ops vault"); err != nil {
		t.Fatal(err)
	}
	if err := store.Remember(ctx, "s1", "the staging deploy runs nightly"); err != nil {
		t.Fatal(err)
	}

	got, err := store.Recall(ctx, "s1", "deploy vault", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "the deploy key lives in the ops vault" {
		t.Errorf("recall = %v", got)
	}
}

func TestRecallScopedToSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Remember(ctx, "s1", "prefers tabs"); err != nil {
		t.Fatal(err)
	}
	if err := store.Remember(ctx, "s2", "prefers spaces"); err != nil {
		t.Fatal(err)
	}

	got, err := store.Recall(ctx, "s2", "prefers", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "prefers spaces" {
		t.Errorf("recall = %v", got)
	}
}

func TestRecallLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := store.Remember(ctx, "s1", "note about coffee"); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Recall(ctx, "s1", "coffee", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("limit not applied: %d results", len(got))
	}

	got, err = store.Recall(ctx, "s1", "coffee", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Errorf("default limit not applied: %d results", len(got))
	}
}

func TestRecallNoMatches(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Recall(context.Background(), "s1", "anything", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("recall = %v", got)
	}
}
