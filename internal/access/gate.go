package access

import (
	"time"

	"keepsake/internal/capsule"
)

// Viewer identifies the person requesting access. A zero Viewer is an
// anonymous visitor.
type Viewer struct {
	ID            string
	Email         string
	Authenticated bool
}

// Decision is the outcome of resolving a viewer against a capsule.
type Decision string

const (
	// DecisionEdit grants full authoring access (draft owner only).
	DecisionEdit Decision = "edit"
	// DecisionView grants content-revealing read-only access.
	DecisionView Decision = "view"
	// DecisionWait shows the countdown page: the capsule exists but its
	// unlock date has not arrived. Content is never revealed.
	DecisionWait Decision = "wait"
	// DecisionLogin asks the visitor to authenticate before viewing.
	DecisionLogin Decision = "login"
	// DecisionDenied hides the capsule entirely.
	DecisionDenied Decision = "denied"
)

// IsDraft reports whether the capsule has not been finalized.
func IsDraft(doc capsule.Document) bool {
	return !doc.IsLocked
}

// IsTimeLocked reports whether the capsule is finalized but its unlock date
// is still in the future.
func IsTimeLocked(doc capsule.Document, now time.Time) bool {
	return doc.IsLocked && doc.UnlockDate.After(now)
}

// IsUnlocked reports whether the capsule is finalized and its unlock date
// has passed.
func IsUnlocked(doc capsule.Document, now time.Time) bool {
	return doc.IsLocked && !doc.UnlockDate.After(now)
}

// IsOwner reports whether the user created the capsule.
func IsOwner(doc capsule.Document, userID string) bool {
	return userID != "" && doc.CreatedBy == userID
}

// IsParticipant reports whether the viewer's email is on the invite list.
func IsParticipant(doc capsule.Document, email string) bool {
	if email == "" {
		return false
	}
	normalized := capsule.NormalizeEmail(email)
	for _, invited := range doc.Emails {
		if capsule.NormalizeEmail(invited) == normalized {
			return true
		}
	}
	return false
}

// CanEdit reports whether the user may mutate the capsule. Editing and
// time-locking are independent axes: once the author finalizes the document
// even the owner is read-only, regardless of the unlock date.
func CanEdit(doc capsule.Document, userID string) bool {
	return IsDraft(doc) && IsOwner(doc, userID)
}

// Resolve applies the viewing rules and returns the page the viewer should
// see.
//
// Drafts are visible to their owner only, in edit mode. A time-locked
// capsule is never viewable in content-revealing mode; the owner and invited
// participants get the countdown page instead. Once unlocked, the owner and
// participants may view, and a public capsule additionally admits any
// authenticated viewer; anonymous visitors to a public capsule are asked to
// log in rather than shown content.
func Resolve(doc capsule.Document, viewer Viewer, now time.Time) Decision {
	owner := IsOwner(doc, viewer.ID)
	participant := IsParticipant(doc, viewer.Email)

	if IsDraft(doc) {
		if owner {
			return DecisionEdit
		}
		return DecisionDenied
	}

	if IsTimeLocked(doc, now) {
		if owner || participant {
			return DecisionWait
		}
		return DecisionDenied
	}

	// Unlocked from here on.
	if owner || participant {
		if viewer.Authenticated {
			return DecisionView
		}
		return DecisionLogin
	}
	if doc.IsPublic {
		if viewer.Authenticated {
			return DecisionView
		}
		return DecisionLogin
	}
	return DecisionDenied
}

// CanComment reports whether the viewer may read or write comments. Comments
// exist only on public, unlocked capsules and always require authentication.
func CanComment(doc capsule.Document, viewer Viewer, now time.Time) bool {
	if !doc.IsPublic || !IsUnlocked(doc, now) {
		return false
	}
	return viewer.Authenticated
}
