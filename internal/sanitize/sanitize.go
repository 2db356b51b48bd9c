// Package sanitize is the boundary between the rich-text surface and the
// capsule document: every HTML fragment entering a text item passes through
// an allow-list policy first.
//
// The policy admits basic formatting and structure tags, links with forced
// rel/target hardening, and https images. Script, style, iframe, and event
// handler attributes never survive. Sanitization is idempotent and an empty
// input yields an empty output.
package sanitize

import (
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer applies the capsule text policy. Safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New builds the sanitizer with the capsule text policy.
func New() *Sanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "div", "span",
		"h1", "h2", "h3",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "u", "s",
	)

	// Links open in a new tab and never leak a referrer.
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	// Inline images must come from the asset store over https.
	p.AllowAttrs("src").OnElements("img")
	p.AllowAttrs("alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &Sanitizer{policy: p}
}

// Sanitize returns the safe form of the fragment. Same input, same output.
func (s *Sanitizer) Sanitize(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return s.policy.Sanitize(rawHTML)
}

// IsEmpty reports whether the fragment carries no visible content after
// sanitization. The authoring session uses this to drop blank text items.
func (s *Sanitizer) IsEmpty(rawHTML string) bool {
	cleaned := s.Sanitize(rawHTML)
	stripped := bluemonday.StrictPolicy().Sanitize(cleaned)
	return strings.TrimSpace(stripped) == ""
}
