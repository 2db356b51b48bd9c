package capsule

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireDateLayout is the date-only format the persistence API uses for
// unlockedDate.
const wireDateLayout = "2006-01-02"

// documentWire is the JSON shape the persistence API produces and accepts.
// Field names are camelCase for JavaScript consumers.
type documentWire struct {
	ID               string     `json:"id,omitempty"`
	CreatedBy        string     `json:"createdBy,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Image            string     `json:"image,omitempty"`
	UnlockedDate     string     `json:"unlockedDate"`
	IsPublic         bool       `json:"isPublic"`
	IsLocked         bool       `json:"isLocked"`
	Emails           []string   `json:"emails"`
	Items            []itemWire `json:"items"`
	BackgroundMusic  string     `json:"backgroundMusic,omitempty"`
	SlideshowTimeout int        `json:"slideshowTimeout,omitempty"`
}

type itemWire struct {
	Type        string `json:"type"`
	Content     string `json:"content,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	Style       string `json:"style,omitempty"`
	FontSize    string `json:"fontSize,omitempty"`
	FontFamily  string `json:"fontFamily,omitempty"`
	FontColor   string `json:"fontColor,omitempty"`
}

// Marshal serializes a document into the API wire shape.
func Marshal(doc Document) ([]byte, error) {
	wire := documentWire{
		ID:               doc.ID,
		CreatedBy:        doc.CreatedBy,
		Title:            doc.Title,
		Description:      doc.Description,
		Image:            doc.Image,
		IsPublic:         doc.IsPublic,
		IsLocked:         doc.IsLocked,
		Emails:           doc.Emails,
		BackgroundMusic:  doc.BackgroundMusic,
		SlideshowTimeout: doc.SlideshowTimeout,
	}
	if wire.Emails == nil {
		wire.Emails = []string{}
	}
	if !doc.UnlockDate.IsZero() {
		wire.UnlockedDate = doc.UnlockDate.UTC().Format(wireDateLayout)
	}
	wire.Items = make([]itemWire, 0, len(doc.Items))
	for _, item := range doc.Items {
		wire.Items = append(wire.Items, itemWire{
			Type:        string(item.Kind),
			Content:     item.Content,
			URL:         item.URL,
			Description: item.Description,
			Style:       item.Style,
			FontSize:    item.FontSize,
			FontFamily:  item.FontFamily,
			FontColor:   item.FontColor,
		})
	}
	return json.Marshal(wire)
}

// Unmarshal parses the API wire shape into a document.
func Unmarshal(data []byte) (Document, error) {
	var wire documentWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Document{}, fmt.Errorf("decode capsule: %w", err)
	}

	doc := Document{
		ID:               wire.ID,
		CreatedBy:        wire.CreatedBy,
		Title:            wire.Title,
		Description:      wire.Description,
		Image:            wire.Image,
		IsPublic:         wire.IsPublic,
		IsLocked:         wire.IsLocked,
		Emails:           wire.Emails,
		BackgroundMusic:  wire.BackgroundMusic,
		SlideshowTimeout: wire.SlideshowTimeout,
	}
	if doc.Emails == nil {
		doc.Emails = []string{}
	}
	if wire.UnlockedDate != "" {
		parsed, err := time.ParseInLocation(wireDateLayout, wire.UnlockedDate, time.UTC)
		if err != nil {
			return Document{}, fmt.Errorf("decode capsule: unlockedDate %q: %w", wire.UnlockedDate, err)
		}
		doc.UnlockDate = parsed
	}
	doc.Items = make([]ContentItem, 0, len(wire.Items))
	for i, item := range wire.Items {
		kind, ok := ParseItemKind(item.Type)
		if !ok {
			return Document{}, fmt.Errorf("decode capsule: items[%d]: unknown type %q", i, item.Type)
		}
		doc.Items = append(doc.Items, ContentItem{
			Kind:        kind,
			Content:     item.Content,
			URL:         item.URL,
			Description: item.Description,
			Style:       item.Style,
			FontSize:    item.FontSize,
			FontFamily:  item.FontFamily,
			FontColor:   item.FontColor,
		})
	}
	return doc, nil
}

// MarshalList serializes a slice of documents, preserving order.
func MarshalList(docs []Document) ([]byte, error) {
	wires := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		data, err := Marshal(doc)
		if err != nil {
			return nil, err
		}
		wires = append(wires, data)
	}
	return json.Marshal(wires)
}

// UnmarshalList parses an array of documents.
func UnmarshalList(data []byte) ([]Document, error) {
	var wires []json.RawMessage
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("decode capsule list: %w", err)
	}
	docs := make([]Document, 0, len(wires))
	for i, raw := range wires {
		doc, err := Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("decode capsule list entry %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
