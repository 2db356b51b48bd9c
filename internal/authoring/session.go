package authoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"keepsake/internal/capsule"
	"keepsake/internal/logging"
	"keepsake/internal/sanitize"
	"keepsake/internal/services"
)

var (
	// ErrSaveInFlight is returned by Save while a previous Save is still
	// waiting on the persistence API. Saves are serialized, never raced.
	ErrSaveInFlight = errors.New("save already in flight")
	// ErrEditInProgress is returned by BeginEdit while another item is in
	// the edit sub-state.
	ErrEditInProgress = errors.New("another item is being edited")
	// ErrNoEditInProgress is returned by the edit sub-state operations when
	// no item is being edited.
	ErrNoEditInProgress = errors.New("no item is being edited")
)

// ValidationError carries the field-level results of a failed pre-save
// validation. It classifies as services.ErrValidation.
type ValidationError struct {
	Result capsule.ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document validation failed: %s", e.Result.String())
}

func (e *ValidationError) Unwrap() error { return services.ErrValidation }

// Persister is the persistence API surface the session depends on. Create
// returns the server-assigned capsule id.
type Persister interface {
	Create(ctx context.Context, doc capsule.Document) (string, error)
	Update(ctx context.Context, id string, doc capsule.Document) error
}

// DraftSaver persists local working copies between sessions. Draft keys are
// local to the store and independent of server-assigned capsule ids. Put is
// called with the session's current key, empty on the first save, and returns
// the key to use from then on. A nil saver disables draft persistence.
type DraftSaver interface {
	Put(ctx context.Context, key string, doc capsule.Document) (string, error)
}

// TextPatch carries the fields CommitEdit merges back into a text item. Nil
// fields are left untouched.
type TextPatch struct {
	Content    *string
	Style      *string
	FontSize   *string
	FontFamily *string
	FontColor  *string
}

// EditSession is the tagged edit sub-state: at most one item is being edited
// at a time, and its draft never touches the document until CommitEdit.
type EditSession struct {
	Index int
	Draft capsule.ContentItem
}

// Session orchestrates edits to one capsule document. All methods are safe
// for concurrent use; edits apply in call order.
type Session struct {
	mu        sync.Mutex
	doc       capsule.Document
	edit      *EditSession
	saving    bool
	draftKey  string
	persister Persister
	drafts    DraftSaver
	sanitizer *sanitize.Sanitizer
	logger    *slog.Logger
}

// SessionOption configures optional Session collaborators.
type SessionOption func(*Session)

// WithDraftSaver enables local draft persistence.
func WithDraftSaver(drafts DraftSaver) SessionOption {
	return func(s *Session) { s.drafts = drafts }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession starts an authoring session over a copy of doc. Pass a zero
// Document to author a brand-new capsule.
func NewSession(doc capsule.Document, persister Persister, opts ...SessionOption) *Session {
	s := &Session{
		doc:       doc.Clone(),
		persister: persister,
		sanitizer: sanitize.New(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "authoring")
	return s
}

// Document returns a deep copy of the current working document.
func (s *Session) Document() capsule.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// lockedErrLocked reports the permission error for mutations on a locked
// document, or nil when editing is allowed.
func (s *Session) lockedErrLocked(operation string) error {
	if !s.doc.IsLocked {
		return nil
	}
	return services.Wrap(services.ErrPermission, "authoring", operation, "capsule is locked", nil)
}

// AddTextItem sanitizes the fragment and appends a text item. Content that is
// empty after sanitization and trimming is ignored without error.
func (s *Session) AddTextItem(rawHTML, styleKey, fontFamily string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lockedErrLocked("add-text-item"); err != nil {
		return err
	}
	if s.sanitizer.IsEmpty(rawHTML) {
		return nil
	}
	s.doc.Items = append(s.doc.Items, capsule.ContentItem{
		Kind:       capsule.ItemText,
		Content:    s.sanitizer.Sanitize(rawHTML),
		Style:      styleKey,
		FontFamily: fontFamily,
	})
	return nil
}

// AddMediaItem appends an image or video item referencing an already-uploaded
// asset URL. Uploading the asset itself is the asset store's job.
func (s *Session) AddMediaItem(kind capsule.ItemKind, assetURL, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lockedErrLocked("add-media-item"); err != nil {
		return err
	}
	if kind != capsule.ItemImage && kind != capsule.ItemVideo {
		return &ValidationError{Result: capsule.ValidationResult{{
			Field:   "items",
			Code:    capsule.CodeInvalid,
			Message: fmt.Sprintf("kind %q is not a media kind", kind),
		}}}
	}
	if strings.TrimSpace(assetURL) == "" {
		return &ValidationError{Result: capsule.ValidationResult{{
			Field:   "items",
			Code:    capsule.CodeRequired,
			Message: "media items require an asset URL",
		}}}
	}
	item := capsule.ContentItem{Kind: kind, Description: description}
	if kind == capsule.ItemImage {
		item.URL = assetURL
	} else {
		item.Content = assetURL
	}
	s.doc.Items = append(s.doc.Items, item)
	return nil
}

// BeginEdit enters the edit sub-state for the text item at index. The draft
// starts as a copy; the document is untouched until CommitEdit.
func (s *Session) BeginEdit(index int) (*EditSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lockedErrLocked("begin-edit"); err != nil {
		return nil, err
	}
	if s.edit != nil {
		return nil, ErrEditInProgress
	}
	if index < 0 || index >= len(s.doc.Items) {
		return nil, services.Wrap(services.ErrValidation, "authoring", "begin-edit",
			fmt.Sprintf("index %d out of range", index), nil)
	}
	if s.doc.Items[index].Kind != capsule.ItemText {
		return nil, services.Wrap(services.ErrValidation, "authoring", "begin-edit",
			"only text items are editable", nil)
	}
	s.edit = &EditSession{Index: index, Draft: s.doc.Items[index]}
	draft := *s.edit
	return &draft, nil
}

// ApplyToDraft merges patch fields into the in-progress draft. Content passes
// through the sanitizer again since the rich text surface is untrusted.
func (s *Session) ApplyToDraft(patch TextPatch) (*EditSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return nil, ErrNoEditInProgress
	}
	if patch.Content != nil {
		s.edit.Draft.Content = s.sanitizer.Sanitize(*patch.Content)
	}
	if patch.Style != nil {
		s.edit.Draft.Style = *patch.Style
	}
	if patch.FontSize != nil {
		s.edit.Draft.FontSize = *patch.FontSize
	}
	if patch.FontFamily != nil {
		s.edit.Draft.FontFamily = *patch.FontFamily
	}
	if patch.FontColor != nil {
		s.edit.Draft.FontColor = *patch.FontColor
	}
	draft := *s.edit
	return &draft, nil
}

// CommitEdit writes the draft back into the document and leaves the edit
// sub-state.
func (s *Session) CommitEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edit == nil {
		return ErrNoEditInProgress
	}
	if err := s.lockedErrLocked("commit-edit"); err != nil {
		return err
	}
	if s.edit.Index >= 0 && s.edit.Index < len(s.doc.Items) {
		s.doc.Items[s.edit.Index] = s.edit.Draft
	}
	s.edit = nil
	return nil
}

// CancelEdit discards the draft without mutating the document.
func (s *Session) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edit = nil
}

// DeleteItem removes the item at index. Out-of-range indexes are no-ops.
func (s *Session) DeleteItem(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lockedErrLocked("delete-item"); err != nil {
		return err
	}
	if index < 0 || index >= len(s.doc.Items) {
		return nil
	}
	if s.edit != nil && s.edit.Index == index {
		s.edit = nil
	}
	s.doc.Items = append(s.doc.Items[:index], s.doc.Items[index+1:]...)
	return nil
}

// MoveItemUp swaps the item at index with its predecessor. Out-of-range
// indexes, including 0, are no-ops.
func (s *Session) MoveItemUp(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lockedErrLocked("move-item-up"); err != nil {
		return err
	}
	if index <= 0 || index >= len(s.doc.Items) {
		return nil
	}
	s.doc.Items[index-1], s.doc.Items[index] = s.doc.Items[index], s.doc.Items[index-1]
	return nil
}

// MoveItemDown swaps the item at index with its successor. Out-of-range
// indexes, including the last, are no-ops.
func (s *Session) MoveItemDown(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lockedErrLocked("move-item-down"); err != nil {
		return err
	}
	if index < 0 || index >= len(s.doc.Items)-1 {
		return nil
	}
	s.doc.Items[index], s.doc.Items[index+1] = s.doc.Items[index+1], s.doc.Items[index]
	return nil
}

// AddParticipant validates and appends an invite address. Syntax and
// duplicate violations surface as distinct field-level errors and leave the
// list unchanged. Uniqueness is case-insensitive.
func (s *Session) AddParticipant(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lockedErrLocked("add-participant"); err != nil {
		return err
	}
	if !capsule.ValidEmail(email) {
		return &ValidationError{Result: capsule.ValidationResult{{
			Field:   "emails",
			Code:    capsule.CodeInvalid,
			Message: fmt.Sprintf("invalid email address %q", email),
		}}}
	}
	normalized := capsule.NormalizeEmail(email)
	for _, existing := range s.doc.Emails {
		if capsule.NormalizeEmail(existing) == normalized {
			return &ValidationError{Result: capsule.ValidationResult{{
				Field:   "emails",
				Code:    capsule.CodeDuplicate,
				Message: fmt.Sprintf("duplicate email address %q", email),
			}}}
		}
	}
	s.doc.Emails = append(s.doc.Emails, normalized)
	return nil
}

// RemoveParticipant removes the invite at index. Out-of-range indexes are
// no-ops.
func (s *Session) RemoveParticipant(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lockedErrLocked("remove-participant"); err != nil {
		return err
	}
	if index < 0 || index >= len(s.doc.Emails) {
		return nil
	}
	s.doc.Emails = append(s.doc.Emails[:index], s.doc.Emails[index+1:]...)
	return nil
}

// SetTitle updates the capsule title.
func (s *Session) SetTitle(title string) error {
	return s.setField("set-title", func(doc *capsule.Document) {
		doc.Title = title
	})
}

// SetDescription updates the capsule description.
func (s *Session) SetDescription(description string) error {
	return s.setField("set-description", func(doc *capsule.Document) {
		doc.Description = description
	})
}

// SetImage updates the cover image URL.
func (s *Session) SetImage(imageURL string) error {
	return s.setField("set-image", func(doc *capsule.Document) {
		doc.Image = imageURL
	})
}

// SetUnlockDate updates the unlock date. Only the calendar date is
// significant.
func (s *Session) SetUnlockDate(date time.Time) error {
	return s.setField("set-unlock-date", func(doc *capsule.Document) {
		doc.UnlockDate = date
	})
}

// SetPublic toggles public visibility.
func (s *Session) SetPublic(public bool) error {
	return s.setField("set-public", func(doc *capsule.Document) {
		doc.IsPublic = public
	})
}

// SetBackgroundMusic updates the background music URL.
func (s *Session) SetBackgroundMusic(musicURL string) error {
	return s.setField("set-background-music", func(doc *capsule.Document) {
		doc.BackgroundMusic = musicURL
	})
}

// SetSlideshowTimeout stores an interactive timeout value, clamped to the
// allowed range. Zero clears the override back to the default interval.
func (s *Session) SetSlideshowTimeout(millis int) error {
	if millis != 0 {
		if millis < capsule.MinSlideshowTimeout {
			millis = capsule.MinSlideshowTimeout
		}
		if millis > capsule.MaxSlideshowTimeout {
			millis = capsule.MaxSlideshowTimeout
		}
	}
	return s.setField("set-slideshow-timeout", func(doc *capsule.Document) {
		doc.SlideshowTimeout = millis
	})
}

// Lock finalizes the capsule. Every later mutation is rejected; locking is
// not reversible through the session.
func (s *Session) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.IsLocked {
		return nil
	}
	s.edit = nil
	s.doc.IsLocked = true
	return nil
}

func (s *Session) setField(operation string, apply func(*capsule.Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lockedErrLocked(operation); err != nil {
		return err
	}
	apply(&s.doc)
	return nil
}

// Save validates the document and submits a snapshot to the persistence API.
// The snapshot is captured at call time; edits made while the request is in
// flight belong to the next Save. A second Save while one is pending returns
// ErrSaveInFlight. On the first successful create the session adopts the
// server-assigned id so the next Save is an update. On failure the document
// is unchanged and the error is retryable where the client says so.
func (s *Session) Save(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return "", ErrSaveInFlight
	}
	if result := capsule.ValidateForSave(s.doc); !result.OK() {
		s.mu.Unlock()
		return "", &ValidationError{Result: result}
	}
	snapshot := s.doc.Clone()
	s.saving = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}()

	if snapshot.ID == "" {
		id, err := s.persister.Create(ctx, snapshot)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.doc.ID = id
		s.mu.Unlock()
		s.logger.Info("capsule created", logging.CapsuleID(id))
		return id, nil
	}

	if err := s.persister.Update(ctx, snapshot.ID, snapshot); err != nil {
		return "", err
	}
	s.logger.Info("capsule updated", logging.CapsuleID(snapshot.ID))
	return snapshot.ID, nil
}

// SaveDraft writes the working copy to the local draft store. It never
// touches the persistence API.
func (s *Session) SaveDraft(ctx context.Context) error {
	s.mu.Lock()
	if s.drafts == nil {
		s.mu.Unlock()
		return services.Wrap(services.ErrValidation, "authoring", "save-draft",
			"no draft store configured", nil)
	}
	snapshot := s.doc.Clone()
	key := s.draftKey
	s.mu.Unlock()

	stored, err := s.drafts.Put(ctx, key, snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.draftKey = stored
	s.mu.Unlock()
	return nil
}

// DraftKey returns the local draft store key, empty until the first
// successful SaveDraft.
func (s *Session) DraftKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftKey
}
