// Package id generates time-sortable run identifiers.
package id

import "github.com/oklog/ulid/v2"

// New returns a fresh ULID string. Runs keyed by ULID sort by start time
// in the journal, which keeps run listings chronological for free.
// Fills do not use this: their IDs must replay identically, so the
// simulator derives them from the run ID and a sequence counter.
func New() string {
	return ulid.Make().String()
}
