//go:build integration

package note_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/neuralos/neuralos/internal/note"
	"github.com/neuralos/neuralos/internal/testutil"
)

func TestStoreCRUD(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := note.New(db.Pool, testutil.NewLogger())
	ctx := context.Background()

	n, err := store.Create(ctx, "alice", "Q3 OKRs", "Ship retrieval v2 by October", []string{"work"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.IndexState != note.IndexStatePending {
		t.Errorf("new note index state = %q, want pending", n.IndexState)
	}

	got, err := store.Get(ctx, "alice", n.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Q3 OKRs" || got.Body != "Ship retrieval v2 by October" {
		t.Errorf("Get returned %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "work" {
		t.Errorf("tags = %v", got.Tags)
	}

	// Another owner must not see the note, and must not learn it exists.
	if _, err := store.Get(ctx, "mallory", n.ID); !errors.Is(err, note.ErrNotFound) {
		t.Fatalf("cross-owner Get = %v, want ErrNotFound", err)
	}

	if _, err := store.Get(ctx, "alice", uuid.New()); !errors.Is(err, note.ErrNotFound) {
		t.Fatalf("Get of unknown id = %v, want ErrNotFound", err)
	}
}

func TestStoreUpdateMarksPending(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := note.New(db.Pool, testutil.NewLogger())
	ctx := context.Background()

	n, err := store.Create(ctx, "alice", "title", "body", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.SetIndexState(ctx, n.ID, note.IndexStateIndexed); err != nil {
		t.Fatalf("SetIndexState: %v", err)
	}

	// A favorite toggle does not touch content and must not re-queue
	// indexing.
	fav := true
	updated, err := store.Update(ctx, "alice", n.ID, note.Patch{IsFavorite: &fav})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.IndexState != note.IndexStateIndexed {
		t.Errorf("index state after metadata patch = %q, want indexed", updated.IndexState)
	}

	body := "rewritten body"
	updated, err = store.Update(ctx, "alice", n.ID, note.Patch{Body: &body})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Body != body {
		t.Errorf("body = %q", updated.Body)
	}
	if updated.IndexState != note.IndexStatePending {
		t.Errorf("index state after content patch = %q, want pending", updated.IndexState)
	}
}

func TestStoreListFilters(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := note.New(db.Pool, testutil.NewLogger())
	ctx := context.Background()

	plain, _ := store.Create(ctx, "alice", "plain", "about databases", nil)
	faved, _ := store.Create(ctx, "alice", "faved", "about retrieval", nil)
	archived, _ := store.Create(ctx, "alice", "archived", "old meeting notes", nil)
	trashed, _ := store.Create(ctx, "alice", "trashed", "obsolete", nil)
	if _, err := store.Create(ctx, "bob", "bobs", "not alice's", nil); err != nil {
		t.Fatalf("Create for bob: %v", err)
	}

	if _, err := store.ToggleFavorite(ctx, "alice", faved.ID); err != nil {
		t.Fatalf("ToggleFavorite: %v", err)
	}
	if _, err := store.ToggleArchive(ctx, "alice", archived.ID); err != nil {
		t.Fatalf("ToggleArchive: %v", err)
	}
	if err := store.SoftDelete(ctx, "alice", trashed.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	tests := []struct {
		filter string
		want   map[uuid.UUID]bool
	}{
		{note.FilterAll, map[uuid.UUID]bool{plain.ID: true, faved.ID: true}},
		{note.FilterFavorites, map[uuid.UUID]bool{faved.ID: true}},
		{note.FilterArchived, map[uuid.UUID]bool{archived.ID: true}},
		{note.FilterTrash, map[uuid.UUID]bool{trashed.ID: true}},
	}
	for _, tt := range tests {
		got, err := store.List(ctx, "alice", note.ListOptions{Filter: tt.filter})
		if err != nil {
			t.Fatalf("List(%s): %v", tt.filter, err)
		}
		if len(got) != len(tt.want) {
			t.Errorf("List(%s) returned %d notes, want %d", tt.filter, len(got), len(tt.want))
			continue
		}
		for _, n := range got {
			if !tt.want[n.ID] {
				t.Errorf("List(%s) returned unexpected note %s", tt.filter, n.Title)
			}
		}
	}

	// ILIKE search on body.
	found, err := store.List(ctx, "alice", note.ListOptions{Search: "RETRIEVAL"})
	if err != nil {
		t.Fatalf("List with search: %v", err)
	}
	if len(found) != 1 || found[0].ID != faved.ID {
		t.Errorf("search returned %d notes", len(found))
	}
}

func TestStoreTrashLifecycle(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := note.New(db.Pool, testutil.NewLogger())
	ctx := context.Background()

	n, err := store.Create(ctx, "alice", "t", "body", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.SoftDelete(ctx, "alice", n.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if err := store.Restore(ctx, "alice", n.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, err := store.Get(ctx, "alice", n.ID)
	if err != nil {
		t.Fatalf("Get after restore: %v", err)
	}
	if got.IsDeleted {
		t.Error("note still deleted after restore")
	}

	if err := store.SoftDelete(ctx, "alice", n.ID); err != nil {
		t.Fatalf("SoftDelete again: %v", err)
	}
	ids, err := store.EmptyTrash(ctx, "alice")
	if err != nil {
		t.Fatalf("EmptyTrash: %v", err)
	}
	if len(ids) != 1 || ids[0] != n.ID {
		t.Errorf("EmptyTrash returned %v", ids)
	}
	if _, err := store.Get(ctx, "alice", n.ID); !errors.Is(err, note.ErrNotFound) {
		t.Fatalf("Get after purge = %v, want ErrNotFound", err)
	}
}

func TestListPendingIndex(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := note.New(db.Pool, testutil.NewLogger())
	ctx := context.Background()

	a, _ := store.Create(ctx, "alice", "a", "body a", nil)
	b, _ := store.Create(ctx, "alice", "b", "body b", nil)
	if err := store.SetIndexState(ctx, b.ID, note.IndexStateIndexed); err != nil {
		t.Fatalf("SetIndexState: %v", err)
	}

	pending, err := store.ListPendingIndex(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingIndex: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("pending = %d notes, want just the unindexed one", len(pending))
	}
}
