package authoring

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"keepsake/internal/capsule"
	"keepsake/internal/services"
)

type fakePersister struct {
	mu        sync.Mutex
	createErr error
	updateErr error
	creates   []capsule.Document
	updates   map[string]capsule.Document
	nextID    string
	block     chan struct{}
}

func newFakePersister() *fakePersister {
	return &fakePersister{updates: make(map[string]capsule.Document), nextID: "cap-1"}
}

func (p *fakePersister) Create(ctx context.Context, doc capsule.Document) (string, error) {
	p.mu.Lock()
	p.creates = append(p.creates, doc)
	p.mu.Unlock()
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return "", p.createErr
	}
	return p.nextID, nil
}

func (p *fakePersister) Update(ctx context.Context, id string, doc capsule.Document) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.updateErr != nil {
		return p.updateErr
	}
	p.updates[id] = doc
	return nil
}

func validDoc() capsule.Document {
	return capsule.Document{
		CreatedBy:   "user-1",
		Title:       "Summer 2026",
		Description: "A capsule for the summer trip",
		UnlockDate:  time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC),
		Items: []capsule.ContentItem{
			{Kind: capsule.ItemText, Content: "<p>hello</p>"},
		},
	}
}

func TestAddTextItemSanitizes(t *testing.T) {
	session := NewSession(validDoc(), newFakePersister())

	if err := session.AddTextItem(`<p onclick="x()">hi<script>evil()</script></p>`, "wedding", "serif"); err != nil {
		t.Fatalf("add text item: %v", err)
	}
	doc := session.Document()
	if len(doc.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(doc.Items))
	}
	added := doc.Items[1]
	if strings.Contains(added.Content, "script") || strings.Contains(added.Content, "onclick") {
		t.Fatalf("content not sanitized: %q", added.Content)
	}
	if added.Style != "wedding" || added.FontFamily != "serif" {
		t.Fatalf("style fields not applied: %+v", added)
	}
}

func TestAddTextItemEmptyAfterTrimIsNoOp(t *testing.T) {
	session := NewSession(validDoc(), newFakePersister())

	for _, raw := range []string{"", "   ", "<p>   </p>", "<script>x()</script>"} {
		if err := session.AddTextItem(raw, "", ""); err != nil {
			t.Fatalf("add %q: %v", raw, err)
		}
	}
	if got := len(session.Document().Items); got != 1 {
		t.Fatalf("empty fragments must not append items, have %d", got)
	}
}

func TestAddMediaItem(t *testing.T) {
	session := NewSession(validDoc(), newFakePersister())

	if err := session.AddMediaItem(capsule.ItemImage, "https://cdn.example.com/a.jpg", "beach"); err != nil {
		t.Fatalf("add image: %v", err)
	}
	if err := session.AddMediaItem(capsule.ItemVideo, "https://cdn.example.com/b.mp4", ""); err != nil {
		t.Fatalf("add video: %v", err)
	}
	doc := session.Document()
	image := doc.Items[1]
	if image.URL != "https://cdn.example.com/a.jpg" || image.Description != "beach" {
		t.Fatalf("image fields wrong: %+v", image)
	}
	if video := doc.Items[2]; video.MediaURL() != "https://cdn.example.com/b.mp4" {
		t.Fatalf("video URL wrong: %+v", video)
	}

	if err := session.AddMediaItem(capsule.ItemText, "https://x", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("text kind must be rejected, got %v", err)
	}
	if err := session.AddMediaItem(capsule.ItemImage, "  ", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("blank URL must be rejected, got %v", err)
	}
}

func TestEditSubState(t *testing.T) {
	session := NewSession(validDoc(), newFakePersister())

	edit, err := session.BeginEdit(0)
	if err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if edit.Index != 0 || edit.Draft.Content != "<p>hello</p>" {
		t.Fatalf("unexpected edit session: %+v", edit)
	}
	if _, err := session.BeginEdit(0); !errors.Is(err, ErrEditInProgress) {
		t.Fatalf("second edit must be rejected, got %v", err)
	}

	content := "<p>changed</p>"
	color := "#336699"
	if _, err := session.ApplyToDraft(TextPatch{Content: &content, FontColor: &color}); err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	if got := session.Document().Items[0].Content; got != "<p>hello</p>" {
		t.Fatalf("document mutated before commit: %q", got)
	}

	if err := session.CommitEdit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	item := session.Document().Items[0]
	if item.Content != "<p>changed</p>" || item.FontColor != "#336699" {
		t.Fatalf("patch not merged: %+v", item)
	}
	if err := session.CommitEdit(); !errors.Is(err, ErrNoEditInProgress) {
		t.Fatalf("commit without edit: %v", err)
	}
}

func TestCancelEditDiscardsDraft(t *testing.T) {
	session := NewSession(validDoc(), newFakePersister())

	if _, err := session.BeginEdit(0); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	content := "<p>discarded</p>"
	if _, err := session.ApplyToDraft(TextPatch{Content: &content}); err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	session.CancelEdit()
	if got := session.Document().Items[0].Content; got != "<p>hello</p>" {
		t.Fatalf("cancel must not mutate the document: %q", got)
	}
	if _, err := session.BeginEdit(0); err != nil {
		t.Fatalf("editing must be possible after cancel: %v", err)
	}
}

func TestBeginEditRejectsNonText(t *testing.T) {
	doc := validDoc()
	doc.Items = append(doc.Items, capsule.ContentItem{Kind: capsule.ItemImage, URL: "https://x/a.jpg"})
	session := NewSession(doc, newFakePersister())

	if _, err := session.BeginEdit(1); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("image item edit: %v", err)
	}
	if _, err := session.BeginEdit(7); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("out-of-range edit: %v", err)
	}
}

func TestDeleteItemOutOfRangeIsNoOp(t *testing.T) {
	session := NewSession(validDoc(), newFakePersister())

	for _, index := range []int{-1, 1, 99} {
		if err := session.DeleteItem(index); err != nil {
			t.Fatalf("delete %d: %v", index, err)
		}
	}
	if got := len(session.Document().Items); got != 1 {
		t.Fatalf("out-of-range delete mutated the list: %d items", got)
	}

	if err := session.DeleteItem(0); err != nil {
		t.Fatalf("delete 0: %v", err)
	}
	if got := len(session.Document().Items); got != 0 {
		t.Fatalf("expected empty list, got %d", got)
	}
}

func TestMoveItemUpDownAreInverses(t *testing.T) {
	doc := validDoc()
	doc.Items = []capsule.ContentItem{
		{Kind: capsule.ItemText, Content: "<p>a</p>"},
		{Kind: capsule.ItemText, Content: "<p>b</p>"},
		{Kind: capsule.ItemText, Content: "<p>c</p>"},
	}
	session := NewSession(doc, newFakePersister())

	if err := session.MoveItemDown(1); err != nil {
		t.Fatalf("move down: %v", err)
	}
	if err := session.MoveItemUp(2); err != nil {
		t.Fatalf("move up: %v", err)
	}
	items := session.Document().Items
	for i, want := range []string{"<p>a</p>", "<p>b</p>", "<p>c</p>"} {
		if items[i].Content != want {
			t.Fatalf("order not restored at %d: %+v", i, items)
		}
	}

	// Boundary moves are no-ops.
	if err := session.MoveItemUp(0); err != nil {
		t.Fatalf("move up 0: %v", err)
	}
	if err := session.MoveItemDown(2); err != nil {
		t.Fatalf("move down last: %v", err)
	}
	if got := session.Document().Items[0].Content; got != "<p>a</p>" {
		t.Fatalf("boundary move mutated the list: %q", got)
	}
}

func TestAddParticipantValidation(t *testing.T) {
	doc := validDoc()
	doc.Emails = []string{"friend@example.com"}
	session := NewSession(doc, newFakePersister())

	err := session.AddParticipant("not-an-email")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("syntax failure: %v", err)
	}
	var invalid *ValidationError
	if !errors.As(err, &invalid) || invalid.Result[0].Code != capsule.CodeInvalid {
		t.Fatalf("expected syntax code, got %v", err)
	}

	err = session.AddParticipant("Friend@Example.com")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("duplicate failure: %v", err)
	}
	var dup *ValidationError
	if !errors.As(err, &dup) || dup.Result[0].Code != capsule.CodeDuplicate {
		t.Fatalf("expected duplicate code, got %v", err)
	}

	if got := session.Document().Emails; len(got) != 1 {
		t.Fatalf("rejected adds must leave the list unchanged: %v", got)
	}

	if err := session.AddParticipant("Second@Example.com"); err != nil {
		t.Fatalf("valid add: %v", err)
	}
	if got := session.Document().Emails[1]; got != "second@example.com" {
		t.Fatalf("emails are stored normalized, got %q", got)
	}
}

func TestRemoveParticipant(t *testing.T) {
	doc := validDoc()
	doc.Emails = []string{"a@example.com", "b@example.com"}
	session := NewSession(doc, newFakePersister())

	if err := session.RemoveParticipant(5); err != nil {
		t.Fatalf("out-of-range remove: %v", err)
	}
	if err := session.RemoveParticipant(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got := session.Document().Emails
	if len(got) != 1 || got[0] != "b@example.com" {
		t.Fatalf("unexpected list after remove: %v", got)
	}
}

func TestLockedDocumentRejectsMutations(t *testing.T) {
	doc := validDoc()
	doc.ID = "cap-9"
	doc.IsLocked = true
	session := NewSession(doc, newFakePersister())

	checks := map[string]error{
		"add text":    session.AddTextItem("<p>x</p>", "", ""),
		"add media":   session.AddMediaItem(capsule.ItemImage, "https://x/a.jpg", ""),
		"delete":      session.DeleteItem(0),
		"move up":     session.MoveItemUp(1),
		"move down":   session.MoveItemDown(0),
		"participant": session.AddParticipant("new@example.com"),
		"set title":   session.SetTitle("other"),
		"timeout":     session.SetSlideshowTimeout(2000),
	}
	for name, err := range checks {
		if !errors.Is(err, services.ErrPermission) {
			t.Fatalf("%s on locked capsule: %v", name, err)
		}
	}
	if _, err := session.BeginEdit(0); !errors.Is(err, services.ErrPermission) {
		t.Fatalf("begin edit on locked capsule: %v", err)
	}
}

func TestSetSlideshowTimeoutClamps(t *testing.T) {
	session := NewSession(validDoc(), newFakePersister())

	tests := []struct {
		input int
		want  int
	}{
		{500, capsule.MinSlideshowTimeout},
		{400000, capsule.MaxSlideshowTimeout},
		{2500, 2500},
		{0, 0},
	}
	for _, tc := range tests {
		if err := session.SetSlideshowTimeout(tc.input); err != nil {
			t.Fatalf("set %d: %v", tc.input, err)
		}
		if got := session.Document().SlideshowTimeout; got != tc.want {
			t.Fatalf("input %d: got %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestSaveCreatesThenUpdates(t *testing.T) {
	persister := newFakePersister()
	session := NewSession(validDoc(), persister)

	id, err := session.Save(context.Background())
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	if id != "cap-1" {
		t.Fatalf("unexpected id %q", id)
	}
	if got := session.Document().ID; got != "cap-1" {
		t.Fatalf("session must adopt the server id, got %q", got)
	}

	if err := session.SetTitle("Summer 2026, revised"); err != nil {
		t.Fatalf("set title: %v", err)
	}
	id, err = session.Save(context.Background())
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if id != "cap-1" {
		t.Fatalf("second save must update, got id %q", id)
	}
	if len(persister.creates) != 1 {
		t.Fatalf("expected one create, got %d", len(persister.creates))
	}
	if got := persister.updates["cap-1"].Title; got != "Summer 2026, revised" {
		t.Fatalf("update payload wrong: %q", got)
	}
}

func TestSaveValidatesFirst(t *testing.T) {
	doc := validDoc()
	doc.Title = ""
	persister := newFakePersister()
	session := NewSession(doc, persister)

	_, err := session.Save(context.Background())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Result.ForField("title")) == 0 {
		t.Fatalf("expected title field error, got %v", err)
	}
	if len(persister.creates) != 0 {
		t.Fatal("invalid document must never reach the persister")
	}
}

func TestSaveFailureLeavesDocumentUnchanged(t *testing.T) {
	persister := newFakePersister()
	persister.createErr = services.Wrap(services.ErrTransient, "persistence", "create", "request failed", nil)
	session := NewSession(validDoc(), persister)

	before := session.Document()
	_, err := session.Save(context.Background())
	if !services.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	after := session.Document()
	if !before.Equal(after) || after.ID != "" {
		t.Fatalf("failed save must not mutate the document: %+v", after)
	}
}

func TestOverlappingSavesAreRejected(t *testing.T) {
	persister := newFakePersister()
	persister.block = make(chan struct{})
	session := NewSession(validDoc(), persister)

	firstDone := make(chan error, 1)
	go func() {
		_, err := session.Save(context.Background())
		firstDone <- err
	}()

	// Wait for the first save to reach the persister.
	deadline := time.After(2 * time.Second)
	for {
		persister.mu.Lock()
		started := len(persister.creates) > 0
		persister.mu.Unlock()
		if started {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first save never reached the persister")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := session.Save(context.Background()); !errors.Is(err, ErrSaveInFlight) {
		t.Fatalf("overlapping save must be rejected, got %v", err)
	}

	close(persister.block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first save: %v", err)
	}
	if _, err := session.Save(context.Background()); err != nil {
		t.Fatalf("save after completion: %v", err)
	}
}

func TestSaveSnapshotExcludesLaterEdits(t *testing.T) {
	persister := newFakePersister()
	persister.block = make(chan struct{})
	session := NewSession(validDoc(), persister)

	done := make(chan error, 1)
	go func() {
		_, err := session.Save(context.Background())
		done <- err
	}()

	deadline := time.After(2 * time.Second)
	for {
		persister.mu.Lock()
		started := len(persister.creates) > 0
		persister.mu.Unlock()
		if started {
			break
		}
		select {
		case <-deadline:
			t.Fatal("save never reached the persister")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := session.SetTitle("edited mid-flight"); err != nil {
		t.Fatalf("edit during save: %v", err)
	}
	close(persister.block)
	if err := <-done; err != nil {
		t.Fatalf("save: %v", err)
	}

	persister.mu.Lock()
	sent := persister.creates[0].Title
	persister.mu.Unlock()
	if sent != "Summer 2026" {
		t.Fatalf("in-flight save must carry the snapshot at call time, sent %q", sent)
	}
	if got := session.Document().Title; got != "edited mid-flight" {
		t.Fatalf("later edit lost: %q", got)
	}
}

type fakeDraftSaver struct {
	mu    sync.Mutex
	puts  int
	key   string
	last  capsule.Document
	fail  error
	nextK string
}

func (d *fakeDraftSaver) Put(ctx context.Context, key string, doc capsule.Document) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.puts++
	if d.fail != nil {
		return "", d.fail
	}
	if key == "" {
		key = d.nextK
	}
	d.key = key
	d.last = doc
	return key, nil
}

func TestSaveDraftAssignsLocalKey(t *testing.T) {
	drafts := &fakeDraftSaver{nextK: "draft-7"}
	session := NewSession(validDoc(), newFakePersister(), WithDraftSaver(drafts))

	if err := session.SaveDraft(context.Background()); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if session.DraftKey() != "draft-7" {
		t.Fatalf("draft key not adopted: %q", session.DraftKey())
	}
	if got := session.Document().ID; got != "" {
		t.Fatalf("draft key must not leak into the capsule id, got %q", got)
	}

	if err := session.SaveDraft(context.Background()); err != nil {
		t.Fatalf("second save draft: %v", err)
	}
	if drafts.key != "draft-7" {
		t.Fatalf("second draft save must reuse the key, got %q", drafts.key)
	}
}

func TestSaveDraftWithoutStore(t *testing.T) {
	session := NewSession(validDoc(), newFakePersister())
	if err := session.SaveDraft(context.Background()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
