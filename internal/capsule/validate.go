package capsule

import (
	"fmt"
	"regexp"
	"strings"
)

// Field error codes surfaced by ValidateForSave.
const (
	CodeRequired   = "required"
	CodeInvalid    = "invalid"
	CodeDuplicate  = "duplicate"
	CodeOutOfRange = "out_of_range"
)

// FieldError describes one validation failure tied to a document field.
type FieldError struct {
	Field   string
	Code    string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult aggregates field-level errors. An empty result means the
// document may be saved.
type ValidationResult []FieldError

// OK reports whether validation passed.
func (r ValidationResult) OK() bool { return len(r) == 0 }

// ForField returns the errors recorded against one field.
func (r ValidationResult) ForField(field string) []FieldError {
	var out []FieldError
	for _, fe := range r {
		if fe.Field == field {
			out = append(out, fe)
		}
	}
	return out
}

func (r ValidationResult) String() string {
	if r.OK() {
		return "ok"
	}
	parts := make([]string, 0, len(r))
	for _, fe := range r {
		parts = append(parts, fe.Error())
	}
	return strings.Join(parts, "; ")
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reports whether the address is syntactically acceptable as a
// participant invite.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// NormalizeEmail is the canonical form used for uniqueness comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateForSave checks every invariant the document must satisfy before it
// is submitted to the persistence API. It returns field-level errors rather
// than failing on the first problem. An out-of-range slideshow timeout is an
// error here, not a silent clamp; interactive input is clamped upstream by
// the authoring session.
func ValidateForSave(doc Document) ValidationResult {
	var result ValidationResult

	if strings.TrimSpace(doc.Title) == "" {
		result = append(result, FieldError{Field: "title", Code: CodeRequired, Message: "title is required"})
	}
	if strings.TrimSpace(doc.Description) == "" {
		result = append(result, FieldError{Field: "description", Code: CodeRequired, Message: "description is required"})
	}
	if doc.UnlockDate.IsZero() {
		result = append(result, FieldError{Field: "unlockedDate", Code: CodeRequired, Message: "unlock date is required"})
	}

	seen := make(map[string]struct{}, len(doc.Emails))
	for _, email := range doc.Emails {
		if !ValidEmail(email) {
			result = append(result, FieldError{
				Field:   "emails",
				Code:    CodeInvalid,
				Message: fmt.Sprintf("invalid email address %q", email),
			})
			continue
		}
		normalized := NormalizeEmail(email)
		if _, dup := seen[normalized]; dup {
			result = append(result, FieldError{
				Field:   "emails",
				Code:    CodeDuplicate,
				Message: fmt.Sprintf("duplicate email address %q", email),
			})
			continue
		}
		seen[normalized] = struct{}{}
	}

	if doc.SlideshowTimeout != 0 &&
		(doc.SlideshowTimeout < MinSlideshowTimeout || doc.SlideshowTimeout > MaxSlideshowTimeout) {
		result = append(result, FieldError{
			Field: "slideshowTimeout",
			Code:  CodeOutOfRange,
			Message: fmt.Sprintf("slideshow timeout must be between %d and %d milliseconds",
				MinSlideshowTimeout, MaxSlideshowTimeout),
		})
	}

	for i, item := range doc.Items {
		if _, known := ParseItemKind(string(item.Kind)); !known {
			result = append(result, FieldError{
				Field:   fmt.Sprintf("items[%d]", i),
				Code:    CodeInvalid,
				Message: fmt.Sprintf("unknown item type %q", item.Kind),
			})
		}
	}

	return result
}
