package capsule

import "strings"

// ItemKind discriminates the content item union.
type ItemKind string

const (
	ItemText  ItemKind = "text"
	ItemImage ItemKind = "image"
	ItemVideo ItemKind = "video"
)

var allItemKinds = []ItemKind{ItemText, ItemImage, ItemVideo}

// ParseItemKind converts a string into a known ItemKind.
func ParseItemKind(value string) (ItemKind, bool) {
	normalized := ItemKind(strings.ToLower(strings.TrimSpace(value)))
	for _, kind := range allItemKinds {
		if kind == normalized {
			return kind, true
		}
	}
	return "", false
}

// ContentItem is one unit of capsule content. Position in the containing
// slice is the canonical display order.
type ContentItem struct {
	Kind ItemKind

	// Content holds the sanitized HTML fragment for text items and the
	// media URL for video items.
	Content string

	// URL and Description describe image items.
	URL         string
	Description string

	// Style attributes apply to text items only. Each is optional and
	// falls back to the named theme, then the default theme.
	Style      string
	FontSize   string
	FontFamily string
	FontColor  string
}

// IsMedia reports whether the item references an uploaded asset.
func (i ContentItem) IsMedia() bool {
	return i.Kind == ItemImage || i.Kind == ItemVideo
}

// MediaURL returns the asset URL for media items, empty otherwise.
func (i ContentItem) MediaURL() string {
	switch i.Kind {
	case ItemImage:
		return i.URL
	case ItemVideo:
		return i.Content
	default:
		return ""
	}
}
