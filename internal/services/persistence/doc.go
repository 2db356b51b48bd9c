// Package persistence implements the HTTP client for the capsule API. The
// client owns its bearer token, paces requests with a client-side limiter,
// and maps response statuses onto the shared service error markers.
package persistence
