package metrics

import "time"

// ImportEvent summarises one import batch.
type ImportEvent struct {
	BatchID  string
	Imported int
	Skipped  int
	Failed   bool // transport failure
	Duration time.Duration
	Time     time.Time
}

// Sink records reconciliation activity for observability purposes.
type Sink interface {
	RecordImport(ev ImportEvent) error
}

// RefreshEvent summarises one refresh-and-collect pass.
type RefreshEvent struct {
	Tracked  int
	Ready    int
	Skipped  int
	Duration time.Duration
	Time     time.Time
}

// RefreshRecorder records refresh passes.
type RefreshRecorder interface {
	RecordRefresh(ev RefreshEvent) error
}

// RetireEvent captures a vehicle leaving its slot.
type RetireEvent struct {
	Plate       string
	FinalCharge int
	Time        time.Time
}

// RetireRecorder records retirements.
type RetireRecorder interface {
	RecordRetire(ev RetireEvent) error
}

// ChargeObservation is a charge figure computed for a vehicle at a point in time.
type ChargeObservation struct {
	Plate         string
	CurrentCharge int
	TotalCharge   int
	Ready         bool
	Context       string // "refresh" or "retire"
	Time          time.Time
}

// ChargeRecorder records charge observations.
type ChargeRecorder interface {
	RecordCharge(obs []ChargeObservation) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordImport(ImportEvent) error         { return nil }
func (NopSink) RecordRefresh(RefreshEvent) error       { return nil }
func (NopSink) RecordRetire(RetireEvent) error         { return nil }
func (NopSink) RecordCharge([]ChargeObservation) error { return nil }
