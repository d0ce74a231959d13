// Package metrics records simulation run outcomes in Prometheus and
// InfluxDB.
package metrics

import "github.com/kwhlab/evdemand/core/simulation"

// Config selects and parameterises the metric sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusAddr    string `json:"prometheus_addr"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9090"
	}
}

// Sink consumes finished country runs.
type Sink interface {
	RecordRun(res *simulation.RunResult) error
	Close()
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordRun(*simulation.RunResult) error { return nil }
func (NopSink) Close()                                {}

// MultiSink fans a run out to several sinks, returning the first error.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink { return &MultiSink{sinks: sinks} }

func (m *MultiSink) RecordRun(res *simulation.RunResult) error {
	var first error
	for _, s := range m.sinks {
		if err := s.RecordRun(res); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) Close() {
	for _, s := range m.sinks {
		s.Close()
	}
}
