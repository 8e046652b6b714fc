package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

// Status is the occupancy state of a ledger record. Retirement is a state
// transition; records are never deleted.
type Status string

const (
	// StatusNew is the implicit state of a plate the ledger has never seen.
	StatusNew      Status = "new"
	StatusOccupied Status = "occupied"
	StatusRetired  Status = "retired"
)

const (
	// EventPark starts a charging session. Parking an occupied vehicle
	// resets its session.
	EventPark = "park"
	// EventRetire releases the slot and freezes the accumulated charge.
	EventRetire = "retire"
)

// ErrInvalidTransition is returned when an event is not allowed from the
// current status.
var ErrInvalidTransition = errors.New("invalid status transition")

var lifecycle = fsm.Events{
	{Name: EventPark, Src: []string{string(StatusNew), string(StatusRetired), string(StatusOccupied)}, Dst: string(StatusOccupied)},
	{Name: EventRetire, Src: []string{string(StatusOccupied)}, Dst: string(StatusRetired)},
}

// ParseStatus converts a stored status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOccupied, StatusRetired:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Next returns the status reached by applying event to from.
func Next(ctx context.Context, from Status, event string) (Status, error) {
	if from == "" {
		from = StatusNew
	}
	m := fsm.NewFSM(string(from), lifecycle, fsm.Callbacks{})
	if err := m.Event(ctx, event); err != nil {
		var noop fsm.NoTransitionError
		if errors.As(err, &noop) {
			return from, nil
		}
		return from, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, from)
	}
	return Status(m.Current()), nil
}
