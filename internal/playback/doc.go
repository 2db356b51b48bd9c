// Package playback turns a capsule document into a timed, navigable
// slideshow.
//
// The Engine is a state machine over Idle, Active, Paused, and Finished.
// Non-video slides advance on a cancellable timer; video slides advance on
// the media's natural end event, backed by a duration-based fallback timer
// so a stalled asset never freezes the show. Background music runs as an
// independent audio sub-state that slide transitions leave alone.
//
// The engine never mutates the document it plays. Renderers observe it
// through Snapshot and Subscribe; commands arrive through Start, Next,
// Previous, Pause, Resume, and Restart. Timers come from an injectable Clock
// so tests drive time deterministically, and every exit path (manual
// navigation, pause, restart, Close) cancels outstanding timers before
// anything else happens.
package playback
