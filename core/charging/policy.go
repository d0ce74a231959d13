package charging

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kwhlab/evdemand/core/model"
)

// Mode selects the charging-control strategy for a whole run.
type Mode int8

const (
	ModeUncontrolled Mode = iota
	ModeNightCharge
	ModeRESIntegration
	ModePerfectForesight
)

func (m Mode) String() string {
	switch m {
	case ModeUncontrolled:
		return "uncontrolled"
	case ModeNightCharge:
		return "night_charge"
	case ModeRESIntegration:
		return "res_integration"
	case ModePerfectForesight:
		return "perfect_foresight"
	default:
		return "unknown"
	}
}

// ParseMode accepts both snake_case identifiers and the human-readable names
// used by the reference input files ("Night Charge", "RES Integration", ...).
func ParseMode(s string) (Mode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_") {
	case "", "uncontrolled":
		return ModeUncontrolled, nil
	case "night_charge":
		return ModeNightCharge, nil
	case "res_integration":
		return ModeRESIntegration, nil
	case "perfect_foresight":
		return ModePerfectForesight, nil
	default:
		return ModeUncontrolled, fmt.Errorf("unknown charging mode %q", s)
	}
}

// Window is a daily time window in whole hours. A window with Start > End
// wraps across midnight.
type Window struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// Contains reports whether the given minute of the day falls in the window.
func (w Window) Contains(minuteOfDay int) bool {
	start := w.StartHour * 60
	end := w.EndHour * 60
	if start <= end {
		return minuteOfDay >= start && minuteOfDay < end
	}
	return minuteOfDay >= start || minuteOfDay < end
}

// scheduleRequest carries everything a scheduling function needs to plan one
// parking event: the event bounds, the sampled station power, the energy
// missing to a full battery and the optional residual-load series covering
// the whole horizon.
type scheduleRequest struct {
	horizon   model.Horizon
	start     int
	end       int
	nominalKW float64
	neededKWh float64
	residual  []float64
	night     Window
}

// scheduleFunc plans the per-timestep delivered power of one parking event.
// The returned slice has one entry per timestep in [start, end) and never
// exceeds nominalKW.
type scheduleFunc func(req scheduleRequest) []float64

// schedulers is the policy dispatch table. All four modes share the same
// event-level contract and differ only in how they order the timesteps that
// receive energy.
var schedulers = map[Mode]scheduleFunc{
	ModeUncontrolled:     scheduleUncontrolled,
	ModeNightCharge:      scheduleNightCharge,
	ModeRESIntegration:   scheduleRESIntegration,
	ModePerfectForesight: schedulePerfectForesight,
}

// fillInOrder allocates nominal power to the event's timesteps in the given
// (relative) order until the needed energy is delivered. The last allocated
// step may be partial so the session never overshoots the battery capacity.
func fillInOrder(req scheduleRequest, order []int) []float64 {
	curve := make([]float64, req.end-req.start)
	remaining := req.neededKWh
	stepKWh := req.nominalKW * stepHours
	for _, i := range order {
		if remaining <= 0 {
			break
		}
		if stepKWh <= remaining {
			curve[i] = req.nominalKW
			remaining -= stepKWh
		} else {
			curve[i] = remaining / stepHours
			remaining = 0
		}
	}
	return curve
}

func timeOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// scheduleUncontrolled charges at nominal power from the start of the parking
// event until the battery is full or the event ends.
func scheduleUncontrolled(req scheduleRequest) []float64 {
	return fillInOrder(req, timeOrder(req.end-req.start))
}

// scheduleNightCharge defers charging to the timesteps of the parking event
// falling inside the configured off-peak window. An event that never overlaps
// the window draws no power even when infrastructure was found.
func scheduleNightCharge(req scheduleRequest) []float64 {
	var order []int
	for step := req.start; step < req.end; step++ {
		if req.night.Contains(req.horizon.MinuteOfDay(step)) {
			order = append(order, step-req.start)
		}
	}
	return fillInOrder(req, order)
}

// scheduleRESIntegration shifts charging toward timesteps of renewable
// surplus: timesteps whose residual load is below the event median are served
// first, lowest residual first, then the remaining timesteps top up in time
// order if the need is still unmet. Without a residual-load series the
// behaviour degrades to Uncontrolled; the engine has already warned about the
// missing input.
func scheduleRESIntegration(req scheduleRequest) []float64 {
	if req.residual == nil {
		return scheduleUncontrolled(req)
	}
	window := req.residual[req.start:req.end]
	median := medianOf(window)
	var order, rest []int
	for i, v := range window {
		if v < median {
			order = append(order, i)
		} else {
			rest = append(rest, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return window[order[a]] < window[order[b]]
	})
	return fillInOrder(req, append(order, rest...))
}

// schedulePerfectForesight plans the whole parking event in one shot: the
// required energy is allocated to the timesteps with the lowest residual load
// first, ties broken by time. With no residual data every timestep costs the
// same and the allocation degenerates to earliest-first.
func schedulePerfectForesight(req scheduleRequest) []float64 {
	n := req.end - req.start
	order := timeOrder(n)
	if req.residual != nil {
		window := req.residual[req.start:req.end]
		sort.SliceStable(order, func(a, b int) bool {
			return window[order[a]] < window[order[b]]
		})
	}
	return fillInOrder(req, order)
}

func medianOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
