package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/evslot/core/metrics"
)

// PromSink records reconciliation activity in Prometheus metrics.
type PromSink struct {
	lines    *prometheus.CounterVec
	batches  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tracked  prometheus.Gauge
	ready    prometheus.Gauge
	retired  prometheus.Counter
}

// NewPromSink registers metrics on the default Prometheus registerer.
// The exporter should be started separately using StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.lines, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evslot_import_lines_total",
		Help: "Import lines by result",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if s.batches, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evslot_import_batches_total",
		Help: "Import batches by transport outcome",
	}, []string{"failed"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evslot_workflow_duration_seconds",
		Help:    "Duration of import and refresh workflows",
		Buckets: prometheus.DefBuckets,
	}, []string{"workflow"})); err != nil {
		return nil, err
	}
	if s.tracked, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "evslot_tracked_vehicles",
		Help: "Vehicles in the completion index at the last refresh",
	})); err != nil {
		return nil, err
	}
	if s.ready, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "evslot_ready_vehicles",
		Help: "Vehicles past their predicted completion time at the last refresh",
	})); err != nil {
		return nil, err
	}
	if s.retired, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evslot_retired_vehicles_total",
		Help: "Vehicles released from their slot",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, reusing an identical collector registered earlier.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// RecordImport counts imported and skipped lines of a batch.
func (s *PromSink) RecordImport(ev coremetrics.ImportEvent) error {
	s.lines.WithLabelValues("imported").Add(float64(ev.Imported))
	s.lines.WithLabelValues("skipped").Add(float64(ev.Skipped))
	s.batches.WithLabelValues(strconv.FormatBool(ev.Failed)).Inc()
	s.duration.WithLabelValues("import").Observe(ev.Duration.Seconds())
	return nil
}

// RecordRefresh sets the tracked and ready gauges.
func (s *PromSink) RecordRefresh(ev coremetrics.RefreshEvent) error {
	s.tracked.Set(float64(ev.Tracked))
	s.ready.Set(float64(ev.Ready))
	s.duration.WithLabelValues("refresh").Observe(ev.Duration.Seconds())
	return nil
}

// RecordRetire increments the retirement counter.
func (s *PromSink) RecordRetire(coremetrics.RetireEvent) error {
	s.retired.Inc()
	return nil
}
