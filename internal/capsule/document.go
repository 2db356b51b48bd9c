package capsule

import "time"

// Slideshow timeout bounds in milliseconds. A zero timeout means "unset";
// the playback engine substitutes DefaultSlideshowTimeout.
const (
	MinSlideshowTimeout     = 1000
	MaxSlideshowTimeout     = 300000
	DefaultSlideshowTimeout = 5000
)

// Document is the aggregate capsule record: metadata, the ordered item list,
// and playback configuration.
type Document struct {
	// ID is server-assigned; empty while the capsule is a local draft that
	// has never been saved.
	ID        string
	CreatedBy string

	Title       string
	Description string
	Image       string

	// UnlockDate has date-only granularity. Content may be revealed to
	// non-owner viewers once this date is reached.
	UnlockDate time.Time

	IsPublic bool

	// IsLocked is set when the author finalizes the capsule. It is distinct
	// from the time lock implied by UnlockDate: a locked capsule rejects
	// every mutation path even before the unlock date arrives.
	IsLocked bool

	// Emails is the participant invite list. Entries are unique and
	// syntactically valid addresses.
	Emails []string

	Items []ContentItem

	BackgroundMusic  string
	SlideshowTimeout int
}

// Clone returns a deep copy. Save captures document state at call time via
// Clone so in-flight saves are isolated from later edits.
func (d Document) Clone() Document {
	cp := d
	if d.Emails != nil {
		cp.Emails = make([]string, len(d.Emails))
		copy(cp.Emails, d.Emails)
	}
	if d.Items != nil {
		cp.Items = make([]ContentItem, len(d.Items))
		copy(cp.Items, d.Items)
	}
	return cp
}

// IsDraft reports whether the capsule has not been finalized by its author.
func (d Document) IsDraft() bool {
	return !d.IsLocked
}

// EffectiveSlideTimeout returns the per-slide timeout as a duration,
// substituting the default when unset.
func (d Document) EffectiveSlideTimeout() time.Duration {
	if d.SlideshowTimeout >= MinSlideshowTimeout && d.SlideshowTimeout <= MaxSlideshowTimeout {
		return time.Duration(d.SlideshowTimeout) * time.Millisecond
	}
	return DefaultSlideshowTimeout * time.Millisecond
}

// Equal reports structural equality over every wire-visible field. Dates
// compare by calendar day since UnlockDate has date-only granularity.
func (d Document) Equal(other Document) bool {
	if d.ID != other.ID ||
		d.CreatedBy != other.CreatedBy ||
		d.Title != other.Title ||
		d.Description != other.Description ||
		d.Image != other.Image ||
		d.IsPublic != other.IsPublic ||
		d.IsLocked != other.IsLocked ||
		d.BackgroundMusic != other.BackgroundMusic ||
		d.SlideshowTimeout != other.SlideshowTimeout {
		return false
	}
	if !sameDay(d.UnlockDate, other.UnlockDate) {
		return false
	}
	if len(d.Emails) != len(other.Emails) || len(d.Items) != len(other.Items) {
		return false
	}
	for i := range d.Emails {
		if d.Emails[i] != other.Emails[i] {
			return false
		}
	}
	for i := range d.Items {
		if d.Items[i] != other.Items[i] {
			return false
		}
	}
	return true
}

func sameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() == b.IsZero()
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
