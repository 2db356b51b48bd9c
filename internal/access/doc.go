// Package access implements the visibility and edit rules for capsules:
// draft ownership, the author lock, and the timed-release gate.
//
// Everything here is a pure decision over already-fetched data. The current
// time is always an argument; nothing reads the wall clock or performs IO.
package access
