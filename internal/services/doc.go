// Package services holds the error taxonomy and context annotations shared by
// Keepsake's external collaborators (persistence API, asset store, media
// probing) and the components that call them.
//
// Errors are tagged with sentinel markers via Wrap so call sites can branch on
// classification (validation, permission, not-found, transient) without
// depending on wire details. Context helpers attach request and capsule
// identifiers that the logging layer picks up.
package services
