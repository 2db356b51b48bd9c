// Package logging assembles the structured slog loggers used across Keepsake
// components.
//
// It centralizes level parsing, output routing, and handler construction so
// the CLI, authoring session, playback engine, and viewer server all emit log
// lines with the same shape. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup.
package logging
