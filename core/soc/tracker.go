// Package soc tracks per-user battery state of charge across the simulated
// horizon.
package soc

import "github.com/kwhlab/evdemand/core/model"

const stepHours = float64(model.StepMinutes) / 60

// Tracker holds one user's SOC in kWh and enforces the physical bounds
// 0 <= soc <= capacity at every timestep. A driving timestep that would
// deplete the battery below zero is clamped and recorded as an unmet-demand
// event instead of failing the run.
type Tracker struct {
	userID      string
	capacityKWh float64
	socKWh      float64
	unmet       []model.UnmetDemandEvent
}

// NewTracker initialises the user's SOC to the given fraction of capacity.
// The dummy-day padding lets any bias from this arbitrary start value decay
// before the reported window begins.
func NewTracker(u model.User, initialFrac float64) *Tracker {
	if initialFrac < 0 {
		initialFrac = 0
	}
	if initialFrac > 1 {
		initialFrac = 1
	}
	return &Tracker{
		userID:      u.ID,
		capacityKWh: u.BatteryKWh,
		socKWh:      u.BatteryKWh * initialFrac,
	}
}

// SoC returns the current state of charge in kWh.
func (t *Tracker) SoC() float64 { return t.socKWh }

// Fraction returns the current state of charge as a fraction of capacity.
func (t *Tracker) Fraction() float64 { return t.socKWh / t.capacityKWh }

// Headroom returns the energy in kWh still missing to a full battery.
func (t *Tracker) Headroom() float64 { return t.capacityKWh - t.socKWh }

// Full reports whether the battery is at capacity.
func (t *Tracker) Full() bool { return t.Headroom() <= 1e-9 }

// MaxChargeKW returns the largest charging power deliverable in one timestep
// without overshooting capacity.
func (t *Tracker) MaxChargeKW() float64 { return t.Headroom() / stepHours }

// Advance applies one timestep of driving and/or charging power and returns
// the new SOC in kWh.
func (t *Tracker) Advance(step int, drivingKW, chargingKW float64) float64 {
	if drivingKW > 0 {
		draw := drivingKW * stepHours
		if draw > t.socKWh {
			t.unmet = append(t.unmet, model.UnmetDemandEvent{
				UserID:     t.userID,
				Step:       step,
				DeficitKWh: draw - t.socKWh,
			})
			t.socKWh = 0
		} else {
			t.socKWh -= draw
		}
	}
	if chargingKW > 0 {
		t.socKWh += chargingKW * stepHours
		if t.socKWh > t.capacityKWh {
			t.socKWh = t.capacityKWh
		}
	}
	return t.socKWh
}

// Unmet returns the unmet-demand events recorded so far.
func (t *Tracker) Unmet() []model.UnmetDemandEvent { return t.unmet }
