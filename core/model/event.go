package model

// UsageState labels what the vehicle is doing during a timestep or event.
type UsageState int8

const (
	ParkedHome UsageState = iota
	ParkedElsewhere
	Driving
)

// String returns the label used in exports and logs.
func (s UsageState) String() string {
	switch s {
	case ParkedHome:
		return "parked_home"
	case ParkedElsewhere:
		return "parked_elsewhere"
	case Driving:
		return "driving"
	default:
		return "unknown"
	}
}

// IsParked reports whether the state is a parking state.
func (s UsageState) IsParked() bool { return s == ParkedHome || s == ParkedElsewhere }

// Event is one trip or parking interval [Start, End) on the timestep grid of
// the padded horizon. Events of one user are contiguous: each event's Start
// equals the previous event's End, the first starts at 0 and the last ends at
// Horizon.Steps().
type Event struct {
	State UsageState
	Start int // timestep index, inclusive
	End   int // timestep index, exclusive
	// DistanceKm is the driven distance, zero for parking events.
	DistanceKm float64
}

// Duration returns the event length in timesteps.
func (e Event) Duration() int { return e.End - e.Start }

// DurationHours returns the event length in hours.
func (e Event) DurationHours() float64 {
	return float64(e.Duration()) * StepMinutes / 60
}
