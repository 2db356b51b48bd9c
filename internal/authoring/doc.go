// Package authoring orchestrates local edits to a capsule document before
// persistence. A Session owns one in-memory document, applies user edits in
// strict call order, and submits snapshots to the persistence collaborator.
package authoring
