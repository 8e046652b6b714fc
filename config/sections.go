package config

import (
	"fmt"
	"net"

	"github.com/kilianp07/evslot/core/factory"
	coremetrics "github.com/kilianp07/evslot/core/metrics"
	"github.com/kilianp07/evslot/core/reconcile"
)

// HTTPConfig configures the request API.
type HTTPConfig struct {
	Address                string `json:"address"`
	ReadTimeoutSeconds     int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `json:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.ReadTimeoutSeconds == 0 {
		c.ReadTimeoutSeconds = 15
	}
	if c.WriteTimeoutSeconds == 0 {
		// imports run inside the request
		c.WriteTimeoutSeconds = 120
	}
	if c.ShutdownTimeoutSeconds == 0 {
		c.ShutdownTimeoutSeconds = 10
	}
}

// Validate checks the listen address.
func (c HTTPConfig) Validate() error {
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("invalid address %q: %w", c.Address, err)
	}
	if c.ReadTimeoutSeconds < 0 || c.WriteTimeoutSeconds < 0 || c.ShutdownTimeoutSeconds < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	return nil
}

// ImportConfig bounds bulk imports.
type ImportConfig struct {
	// TimeoutSeconds bounds fetching a remote source.
	TimeoutSeconds int `json:"timeout_seconds"`
	// MaxLineBytes skips longer lines as malformed.
	MaxLineBytes int `json:"max_line_bytes"`
}

// SetDefaults applies sane defaults.
func (c *ImportConfig) SetDefaults() {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 30
	}
	if c.MaxLineBytes == 0 {
		c.MaxLineBytes = reconcile.DefaultMaxLineBytes
	}
}

// Validate checks the limits.
func (c ImportConfig) Validate() error {
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be >= 0")
	}
	if c.MaxLineBytes < 16 {
		return fmt.Errorf("max_line_bytes must be >= 16")
	}
	return nil
}

// RefreshConfig schedules a background refresh of tracked vehicles so ready
// notifications go out without a client polling. Zero disables it.
type RefreshConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
}

// Validate checks the interval.
func (c RefreshConfig) Validate() error {
	if c.IntervalSeconds < 0 {
		return fmt.Errorf("interval_seconds must be >= 0")
	}
	return nil
}

// MetricsConfig lists the metrics sinks and the Prometheus exporter port.
type MetricsConfig struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusPort exposes /metrics when a prometheus sink is configured.
	PrometheusPort string `json:"prometheus_port"`
}

// SetDefaults applies sane defaults.
func (c *MetricsConfig) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = "9100"
	}
}

// Validate checks the sink entries.
func (c MetricsConfig) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sink %d: type is required", i)
		}
	}
	return nil
}

// SinkConfig returns the registry view of the configured sinks.
func (c MetricsConfig) SinkConfig() coremetrics.Config {
	return coremetrics.Config{Sinks: c.Sinks}
}

// HasSink reports whether a sink of the given type is configured.
func (c MetricsConfig) HasSink(typ string) bool {
	for _, s := range c.Sinks {
		if s.Type == typ {
			return true
		}
	}
	return false
}
