// Package completion defines the fast lookup of predicted completion times.
// The index is a disposable cache derived from the ledger: losing it loses no
// charge data. An entry exists exactly while a vehicle is tracked in a slot.
package completion

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a plate has no completion entry.
var ErrNotFound = errors.New("completion: plate not tracked")

// Entry pairs a plate with its predicted completion time.
type Entry struct {
	Plate string
	At    time.Time
}

// Index maps plates to predicted completion times. Each operation is atomic
// on its own; there is no cross-key consistency.
type Index interface {
	Get(ctx context.Context, plate string) (time.Time, error)
	Set(ctx context.Context, plate string, at time.Time) error
	// Delete removes the entry. Deleting a missing plate is not an error.
	Delete(ctx context.Context, plate string) error
	// List enumerates every entry. Entries changed concurrently may or may not
	// be observed.
	List(ctx context.Context) ([]Entry, error)
	Close() error
}
