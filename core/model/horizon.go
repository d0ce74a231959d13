package model

import "time"

// StepMinutes is the native resolution of every profile produced by the
// simulation. All event boundaries are expressed on this grid.
const StepMinutes = 1

// StepsPerDay is the number of timesteps in one simulated day.
const StepsPerDay = 24 * 60 / StepMinutes

// Horizon describes the simulated time window of one country run. The
// reported window of SimDays is padded with DummyDays on both sides so that
// SOC and charging state stabilise before the first reported timestep.
type Horizon struct {
	// StartDay is local midnight of the first reported day.
	StartDay time.Time
	// SimDays is the number of reported days (365/366 for a full year).
	SimDays int
	// DummyDays is the padding added before and after the reported window.
	DummyDays int
}

// TotalDays returns the padded day count.
func (h Horizon) TotalDays() int { return h.SimDays + 2*h.DummyDays }

// Steps returns the number of timesteps in the padded horizon.
func (h Horizon) Steps() int { return h.TotalDays() * StepsPerDay }

// PaddedStart returns midnight of the first dummy day.
func (h Horizon) PaddedStart() time.Time {
	return h.StartDay.AddDate(0, 0, -h.DummyDays)
}

// TimeAt returns the wall-clock time of the given timestep.
func (h Horizon) TimeAt(step int) time.Time {
	return h.PaddedStart().Add(time.Duration(step) * StepMinutes * time.Minute)
}

// ReportedRange returns the [start, end) timestep interval of the reported
// window, excluding the dummy days.
func (h Horizon) ReportedRange() (int, int) {
	start := h.DummyDays * StepsPerDay
	return start, start + h.SimDays*StepsPerDay
}

// DayOf returns the padded-horizon day index of the given timestep.
func (h Horizon) DayOf(step int) int { return step / StepsPerDay }

// WeekdayOfDay returns the weekday of the given padded-horizon day index.
func (h Horizon) WeekdayOfDay(day int) time.Weekday {
	return h.PaddedStart().AddDate(0, 0, day).Weekday()
}

// MinuteOfDay returns the minute within the day of the given timestep.
func (h Horizon) MinuteOfDay(step int) int {
	return (step % StepsPerDay) * StepMinutes
}

// YearLength returns the number of days of the given calendar year.
func YearLength(year int) int {
	if time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC).YearDay() == 366 {
		return 366
	}
	return 365
}
