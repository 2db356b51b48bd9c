// Package viewer serves the playback engine over HTTP: a snapshot endpoint,
// a command endpoint, and a websocket stream renderers subscribe to. The
// server is the transport only; every playback decision stays in the engine.
package viewer
