package model

import (
	"fmt"
	"time"
)

// MaxPlateLength bounds the plate column width of the ledger.
const MaxPlateLength = 20

// Params holds the charging parameters carried by one import line.
type Params struct {
	Plate             string
	CurrentCharge     int // accumulated charge in Ah
	TotalCharge       int // rated capacity in Ah
	DesiredPercentage int // target charge level between 0 and 100
}

// Validate checks the charge invariants enforced at every ledger write.
func (p Params) Validate() error {
	if p.Plate == "" {
		return fmt.Errorf("plate is required")
	}
	if len(p.Plate) > MaxPlateLength {
		return fmt.Errorf("plate %q exceeds %d characters", p.Plate, MaxPlateLength)
	}
	if p.CurrentCharge < 0 {
		return fmt.Errorf("current charge %d is negative", p.CurrentCharge)
	}
	if p.TotalCharge < 0 {
		return fmt.Errorf("total charge %d is negative", p.TotalCharge)
	}
	if p.CurrentCharge > p.TotalCharge {
		return fmt.Errorf("current charge %d exceeds total charge %d", p.CurrentCharge, p.TotalCharge)
	}
	if p.DesiredPercentage < 0 || p.DesiredPercentage > 100 {
		return fmt.Errorf("desired percentage %d out of [0,100]", p.DesiredPercentage)
	}
	return nil
}

// Record is the durable state of a vehicle held by the ledger.
type Record struct {
	ID int64
	Params
	// StartTime is the instant accrual was last computed from. It is advanced
	// on every refresh and is not the arrival time of the vehicle.
	StartTime time.Time
	Status    Status
}

// Occupied reports whether the vehicle currently holds a slot.
func (r Record) Occupied() bool { return r.Status == StatusOccupied }

// Percentage returns the current charge as a percentage of capacity.
func (r Record) Percentage() float64 {
	if r.TotalCharge == 0 {
		return 0
	}
	return float64(r.CurrentCharge) * 100 / float64(r.TotalCharge)
}
