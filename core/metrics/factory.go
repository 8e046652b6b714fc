package metrics

import "github.com/kilianp07/evslot/core/factory"

var sinkRegistry = factory.NewRegistry[Sink]()

// RegisterSink adds a sink factory identified by name.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return sinkRegistry.Register(name, f)
}

// Combiner merges several sinks into one.
type Combiner func(sinks ...Sink) Sink

// NewSink creates the sinks listed in cfg. No entry yields a NopSink, several
// entries are merged with combine.
func NewSink(cfg Config, combine Combiner) (Sink, error) {
	if len(cfg.Sinks) == 0 {
		return NopSink{}, nil
	}
	sinks := make([]Sink, len(cfg.Sinks))
	for i, c := range cfg.Sinks {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return combine(sinks...), nil
}
