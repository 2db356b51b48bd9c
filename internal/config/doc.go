// Package config loads and validates Keepsake's TOML configuration.
//
// Configuration sections by subsystem:
//   - API: persistence backend base URL, bearer token, pacing
//   - Assets: asset store backend selection (filesystem or S3)
//   - Drafts: local draft autosave database location
//   - Playback: slideshow pacing defaults
//   - Viewer: local viewer server bind address and token
//   - Share: deep-link base URL and QR rendering
//   - Logging: log format, level, and output directory
//
// Load applies defaults, expands ~ paths, and validates every section before
// returning. A missing config file is not an error; defaults apply.
package config
