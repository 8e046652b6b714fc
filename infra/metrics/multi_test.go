package metrics

import (
	"errors"
	"testing"

	"github.com/kilianp07/evslot/core/factory"
	coremetrics "github.com/kilianp07/evslot/core/metrics"
)

type recordSink struct {
	count  int
	closed bool
}

func (r *recordSink) RecordImport(coremetrics.ImportEvent) error { r.count++; return nil }

func (r *recordSink) RecordCharge([]coremetrics.ChargeObservation) error { r.count++; return nil }

func (r *recordSink) Close() error { r.closed = true; return nil }

type failSink struct{}

func (failSink) RecordImport(coremetrics.ImportEvent) error { return errors.New("down") }

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2, coremetrics.NopSink{})
	if err := m.RecordImport(coremetrics.ImportEvent{}); err != nil {
		t.Fatalf("record import: %v", err)
	}
	if err := m.RecordCharge(nil); err != nil {
		t.Fatalf("record charge: %v", err)
	}
	if err := m.RecordRefresh(coremetrics.RefreshEvent{}); err != nil {
		t.Fatalf("record refresh: %v", err)
	}
	if err := m.RecordRetire(coremetrics.RetireEvent{}); err != nil {
		t.Fatalf("record retire: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("records not forwarded")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !s1.closed || !s2.closed {
		t.Fatalf("sinks not closed")
	}
}

func TestMultiSinkStopsOnError(t *testing.T) {
	s := &recordSink{}
	m := NewMultiSink(failSink{}, s)
	if err := m.RecordImport(coremetrics.ImportEvent{}); err == nil {
		t.Fatal("expected error")
	}
	if s.count != 0 {
		t.Fatalf("sink after failure should not be called")
	}
}

func TestRegisteredSinks(t *testing.T) {
	s, err := coremetrics.NewSink(coremetrics.Config{Sinks: []factory.ModuleConfig{{Type: "nop"}, {Type: "prometheus"}}}, Combine)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	m, ok := s.(*MultiSink)
	if !ok || len(m.Sinks) != 2 {
		t.Fatalf("expected MultiSink of 2, got %T", s)
	}
	if _, ok := m.Sinks[1].(*PromSink); !ok {
		t.Fatalf("expected PromSink, got %T", m.Sinks[1])
	}
}
