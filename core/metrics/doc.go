// Package metrics defines the sinks recording reconciliation activity.
// Every sink records import batches; sinks may additionally implement the
// RefreshRecorder, RetireRecorder or ChargeRecorder interfaces. Sinks are
// built from configuration through the registry and combined with a
// MultiSink when several are configured.
package metrics
