package draftstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"keepsake/internal/capsule"
	"keepsake/internal/services"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func draftDoc(title string) capsule.Document {
	return capsule.Document{
		CreatedBy:   "user-1",
		Title:       title,
		Description: "desc",
		UnlockDate:  time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC),
		Emails:      []string{"friend@example.com"},
		Items: []capsule.ContentItem{
			{Kind: capsule.ItemText, Content: "<p>hi</p>", Style: "wedding"},
		},
		SlideshowTimeout: 4000,
	}
}

func TestPutAssignsKeyAndRoundTrips(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	key, err := store.Put(ctx, "", draftDoc("first"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key == "" {
		t.Fatal("expected a generated key")
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Equal(draftDoc("first")) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestPutUpdatesExistingDraft(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	key, err := store.Put(ctx, "", draftDoc("v1"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	again, err := store.Put(ctx, key, draftDoc("v2"))
	if err != nil {
		t.Fatalf("put update: %v", err)
	}
	if again != key {
		t.Fatalf("update changed the key: %q -> %q", key, again)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "v2" {
		t.Fatalf("expected updated title, got %q", got.Title)
	}

	infos, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("update must not create a second row, got %d", len(infos))
	}
}

func TestGetMissingDraft(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListOrdersByUpdatedAt(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older, err := store.Put(ctx, "", draftDoc("older"))
	if err != nil {
		t.Fatalf("put older: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	newer, err := store.Put(ctx, "", draftDoc("newer"))
	if err != nil {
		t.Fatalf("put newer: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := store.Put(ctx, older, draftDoc("older updated")); err != nil {
		t.Fatalf("update older: %v", err)
	}

	infos, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(infos))
	}
	if infos[0].Key != older || infos[1].Key != newer {
		t.Fatalf("expected most recently updated first: %+v", infos)
	}
	if infos[0].Title != "older updated" {
		t.Fatalf("listing title stale: %q", infos[0].Title)
	}
}

func TestDeleteDraft(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	key, err := store.Put(ctx, "", draftDoc("doomed"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("draft should be gone, got %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("deleting a missing draft must not fail: %v", err)
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key, err := store.Put(ctx, "", draftDoc("persisted"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Title != "persisted" {
		t.Fatalf("draft lost across reopen: %q", got.Title)
	}
}
