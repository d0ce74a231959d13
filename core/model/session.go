package model

// SessionState is the terminal state of a charging opportunity evaluated for
// one parking event.
type SessionState int8

const (
	// SessionNoInfrastructure means no charging station was found.
	SessionNoInfrastructure SessionState = iota
	// SessionCompleted means the battery reached capacity before the parking
	// event ended.
	SessionCompleted
	// SessionAborted means the parking event ended with SOC below capacity.
	SessionAborted
)

func (s SessionState) String() string {
	switch s {
	case SessionNoInfrastructure:
		return "no_infrastructure"
	case SessionCompleted:
		return "completed"
	case SessionAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ChargingSession records one charging opportunity bound to a parking event.
// Delivered power is always within [Start, End) and never exceeds NominalKW.
type ChargingSession struct {
	UserID string
	// Start and End are the bounds of the parking event, timestep indices.
	Start int
	End   int
	// NominalKW is the sampled station power, zero when no infrastructure
	// was found.
	NominalKW float64
	// DeliveredKWh is the total energy delivered during the session.
	DeliveredKWh float64
	State        SessionState
}
