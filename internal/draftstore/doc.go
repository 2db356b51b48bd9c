// Package draftstore persists local working copies of capsule documents in
// SQLite. Draft keys are local identifiers, unrelated to the server-assigned
// capsule ids; a draft survives restarts and is deleted once the capsule is
// saved remotely.
package draftstore
