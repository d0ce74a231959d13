// Package mobility converts trip/parking event sequences into fixed
// resolution power-draw and usage profiles.
package mobility

import (
	"fmt"

	"github.com/kwhlab/evdemand/core/model"
)

// Generator turns one user's event sequence into a driving-power profile and
// a usage-label profile at the horizon's native resolution.
//
// Driving energy is spread at constant power over each trip: power equals
// distance times consumption rate divided by trip duration. Event boundaries
// already lie on the timestep grid, so the floor-start/floor-end rounding of
// the contract is exact and no boundary minute is counted twice.
type Generator struct {
	Horizon model.Horizon
}

// Profiles builds the driving power profile (kW) and the usage labels for the
// given user. It returns an error if the event sequence does not exactly
// cover the padded horizon.
func (g Generator) Profiles(u model.User, events []model.Event) ([]float64, []model.UsageState, error) {
	if err := CheckCoverage(g.Horizon, events); err != nil {
		return nil, nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	steps := g.Horizon.Steps()
	power := make([]float64, steps)
	usage := make([]model.UsageState, steps)
	for _, e := range events {
		var kw float64
		if e.State == model.Driving {
			kw = e.DistanceKm * u.ConsumptionKWhPerKm / e.DurationHours()
		}
		for step := e.Start; step < e.End; step++ {
			power[step] = kw
			usage[step] = e.State
		}
	}
	return power, usage, nil
}

// CheckCoverage verifies that events are contiguous, non-overlapping and span
// exactly [0, horizon.Steps()).
func CheckCoverage(h model.Horizon, events []model.Event) error {
	if len(events) == 0 {
		return fmt.Errorf("empty event sequence")
	}
	if events[0].Start != 0 {
		return fmt.Errorf("sequence starts at step %d, expected 0", events[0].Start)
	}
	for i, e := range events {
		if e.End <= e.Start {
			return fmt.Errorf("event %d has non-positive duration [%d,%d)", i, e.Start, e.End)
		}
		if i > 0 && e.Start != events[i-1].End {
			return fmt.Errorf("gap or overlap between events %d and %d", i-1, i)
		}
	}
	if last := events[len(events)-1].End; last != h.Steps() {
		return fmt.Errorf("sequence ends at step %d, expected %d", last, h.Steps())
	}
	return nil
}
