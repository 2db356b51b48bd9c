// Package assets implements the asset store: uploads a raw file under a
// declared kind and returns a stable, publicly fetchable URL. Capsule items
// only ever carry the returned URL, never file contents.
package assets
