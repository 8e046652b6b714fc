// Package ledger defines the durable record of vehicles occupying charging
// slots. The ledger is authoritative for charging parameters and accumulated
// charge; every write runs in its own transaction and is committed before the
// caller touches the completion index.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/evslot/core/model"
)

var (
	// ErrNotFound is returned when no record exists for a plate.
	ErrNotFound = errors.New("ledger: vehicle not found")
	// ErrConstraintViolation is returned when a write would break a charge or
	// percentage invariant or collide with an existing plate.
	ErrConstraintViolation = errors.New("ledger: constraint violation")
)

// Filter restricts List results. A zero Filter lists every record.
type Filter struct {
	Status model.Status
}

// Ledger is the durable store of vehicle records.
type Ledger interface {
	// Upsert inserts a record for an unknown plate or replaces the charging
	// parameters of a known one, keeping its ID. The record is marked occupied
	// and its accrual clock starts at start.
	Upsert(ctx context.Context, p model.Params, start time.Time) (model.Record, error)
	Get(ctx context.Context, plate string) (model.Record, error)
	// UpdateChargeAndClock atomically stores a new current charge and start time.
	UpdateChargeAndClock(ctx context.Context, plate string, charge int, start time.Time) error
	// SetRetired marks the record as no longer occupying a slot and freezes
	// its current charge.
	SetRetired(ctx context.Context, plate string, finalCharge int) error
	List(ctx context.Context, f Filter) ([]model.Record, error)
	Close() error
}
