// Package config loads and validates the simulation configuration.
package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kwhlab/evdemand/core/behavior"
	"github.com/kwhlab/evdemand/core/charging"
	"github.com/kwhlab/evdemand/core/model"
	"github.com/kwhlab/evdemand/infra/metrics"
	"github.com/kwhlab/evdemand/infra/publish"
)

// Config is the full configuration of a batch run.
type Config struct {
	Simulation   SimulationConfig   `json:"simulation"`
	Charging     charging.Config    `json:"charging"`
	Countries    []string           `json:"countries"`
	Behavior     behavior.Registry  `json:"behavior"`
	ResidualLoad ResidualLoadConfig `json:"residual_load"`
	Output       OutputConfig       `json:"output"`
	Metrics      metrics.Config     `json:"metrics"`
	Publish      publish.Config     `json:"publish"`
	Logging      LoggingConfig      `json:"logging"`
}

// SimulationConfig defines the simulated horizon and execution parameters.
type SimulationConfig struct {
	// Seed drives every random draw of the run; identical seeds reproduce
	// identical results bit for bit.
	Seed uint64 `json:"seed"`
	Year int    `json:"year"`
	// StartMonth and StartDay are the first reported day (local time).
	StartMonth int `json:"start_month"`
	StartDay   int `json:"start_day"`
	// FullYear simulates the whole calendar year; otherwise SimDays are
	// simulated.
	FullYear bool `json:"full_year"`
	SimDays  int  `json:"sim_days"`
	// DummyDays pad the horizon on both sides to stabilise SOC initial
	// conditions; they are dropped from all outputs.
	DummyDays int `json:"dummy_days"`
	// Workers bounds the per-user parallelism of one country run.
	Workers int `json:"workers"`
}

// SetDefaults applies the reference defaults.
func (c *SimulationConfig) SetDefaults() {
	if c.Seed == 0 {
		c.Seed = 1
	}
	if c.Year == 0 {
		c.Year = 2016
	}
	if c.StartMonth == 0 {
		c.StartMonth = 1
	}
	if c.StartDay == 0 {
		c.StartDay = 1
	}
	if c.SimDays == 0 && !c.FullYear {
		c.SimDays = 7
	}
	if c.DummyDays == 0 {
		c.DummyDays = 5
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Validate checks the horizon parameters.
func (c SimulationConfig) Validate() error {
	if c.Year < 1 {
		return fmt.Errorf("year must be positive")
	}
	if c.StartMonth < 1 || c.StartMonth > 12 {
		return fmt.Errorf("start_month %d outside [1,12]", c.StartMonth)
	}
	if c.StartDay < 1 || c.StartDay > 31 {
		return fmt.Errorf("start_day %d outside [1,31]", c.StartDay)
	}
	if !c.FullYear && c.SimDays < 1 {
		return fmt.Errorf("sim_days must be positive when full_year is false")
	}
	if c.DummyDays < 0 {
		return fmt.Errorf("dummy_days must not be negative")
	}
	return nil
}

// Horizon builds the padded simulation horizon.
func (c SimulationConfig) Horizon() model.Horizon {
	simDays := c.SimDays
	if c.FullYear {
		simDays = model.YearLength(c.Year)
	}
	return model.Horizon{
		StartDay:  time.Date(c.Year, time.Month(c.StartMonth), c.StartDay, 0, 0, 0, 0, time.UTC),
		SimDays:   simDays,
		DummyDays: c.DummyDays,
	}
}

// ResidualLoadConfig points at the directory holding the per-country
// residual-load CSV files. Missing files are tolerated at run time.
type ResidualLoadConfig struct {
	Dir string `json:"dir"`
}

// OutputConfig controls CSV export.
type OutputConfig struct {
	Dir      string `json:"dir"`
	WriteCSV bool   `json:"write_csv"`
	// PerUser also writes the per-user summary file.
	PerUser bool `json:"per_user"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "results"
	}
}

// Load reads the configuration file (yaml or json), applies EV_ environment
// overrides and validates. Defaults are filled into the struct before
// unmarshalling, so a value explicitly set to zero in the file stays zero
// instead of being re-defaulted.
func Load(path string) (*Config, error) {
	var cfg Config
	cfg.SetDefaults()

	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides: EV_LOGGING__LEVEL -> logging.level.
	// The provider must unflatten on "." since the callback already rewrites
	// the double underscore to the koanf path separator.
	if err := k.Load(env.Provider("EV_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "ev_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills defaults on all sections.
func (c *Config) SetDefaults() {
	c.Simulation.SetDefaults()
	c.Charging.SetDefaults()
	c.Output.SetDefaults()
	c.Metrics.SetDefaults()
	c.Publish.SetDefaults()
	c.Logging.SetDefaults()
	if c.Behavior == nil {
		c.Behavior = behavior.DefaultRegistry()
	}
	if len(c.Countries) == 0 {
		c.Countries = []string{"IT"}
	}
}

// Validate checks all sections.
func (c Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if err := c.Charging.Validate(); err != nil {
		return fmt.Errorf("charging: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
