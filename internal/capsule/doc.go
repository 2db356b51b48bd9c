// Package capsule defines the time-capsule document model: the ordered list
// of heterogeneous content items, the named style themes applied to text
// items, pre-save validation, and the JSON wire codec used against the
// persistence API.
//
// Documents are plain values. Mutation is owned by the authoring session and
// playback consumes documents read-only; nothing in this package performs IO.
//
// The wire codec is round-trip safe: unmarshalling the output of Marshal
// reproduces the document for every field the editor can touch. Theme keys
// are opaque at the wire layer; resolution falls back to the default theme
// for keys this build does not know.
package capsule
