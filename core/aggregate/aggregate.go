// Package aggregate reduces per-user profiles into population totals.
package aggregate

import (
	"gonum.org/v1/gonum/floats"

	"github.com/kwhlab/evdemand/core/model"
)

// Sum adds the given per-user profiles timestep by timestep. The iteration
// order is the slice order, so callers get bit-identical totals across runs
// as long as they pass users in a fixed order. The reduction is pure: input
// profiles are never mutated.
func Sum(profiles [][]float64) []float64 {
	if len(profiles) == 0 {
		return nil
	}
	total := make([]float64, len(profiles[0]))
	for _, p := range profiles {
		floats.Add(total, p)
	}
	return total
}

// Peak returns the maximum value of the series and its index.
func Peak(series []float64) (float64, int) {
	var peak float64
	idx := -1
	for i, v := range series {
		if idx == -1 || v > peak {
			peak, idx = v, i
		}
	}
	return peak, idx
}

// EnergyKWh integrates a kW series sampled at the given step length in
// minutes.
func EnergyKWh(series []float64, stepMinutes int) float64 {
	return floats.Sum(series) * float64(stepMinutes) / 60
}

// ReportedHourlyMeans averages the reported window of a padded-horizon
// series into hourly values, dropping the dummy days. Downstream sinks use
// this to keep exported series at a manageable size.
func ReportedHourlyMeans(series []float64, h model.Horizon) []float64 {
	start, end := h.ReportedRange()
	perHour := 60 / model.StepMinutes
	hours := (end - start) / perHour
	out := make([]float64, hours)
	for i := range out {
		lo := start + i*perHour
		out[i] = floats.Sum(series[lo:lo+perHour]) / float64(perHour)
	}
	return out
}
