package model

import (
	"errors"
	"fmt"
)

// ConfigurationError reports missing or invalid per-country simulation
// parameters. It is fatal for the affected country only; a batch run skips
// the country and continues.
type ConfigurationError struct {
	Country string
	Reason  string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for country %s: %s", e.Country, e.Reason)
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce ConfigurationError
	return errors.As(err, &ce)
}

// UnmetDemandEvent records a driving timestep whose energy demand would have
// driven SOC below zero. The simulation clamps SOC at zero and keeps going;
// the event is surfaced in results so unrealistic inputs are visible.
type UnmetDemandEvent struct {
	UserID     string
	Step       int
	DeficitKWh float64
}
