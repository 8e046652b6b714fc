package metrics

import (
	"errors"
	"io"

	coremetrics "github.com/kilianp07/evslot/core/metrics"
)

// MultiSink fans reconciliation records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// Combine adapts NewMultiSink to coremetrics.Combiner.
func Combine(sinks ...coremetrics.Sink) coremetrics.Sink { return NewMultiSink(sinks...) }

// RecordImport forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordImport(ev coremetrics.ImportEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordImport(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRefresh forwards refresh summaries.
func (m *MultiSink) RecordRefresh(ev coremetrics.RefreshEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.RefreshRecorder); ok {
			if err := rec.RecordRefresh(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRetire forwards retirements.
func (m *MultiSink) RecordRetire(ev coremetrics.RetireEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.RetireRecorder); ok {
			if err := rec.RecordRetire(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordCharge forwards charge observations.
func (m *MultiSink) RecordCharge(obs []coremetrics.ChargeObservation) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.ChargeRecorder); ok {
			if err := rec.RecordCharge(obs); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink holding resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
