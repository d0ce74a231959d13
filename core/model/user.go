package model

// User is one simulated vehicle owner. The behavioural attributes are fixed
// at population-synthesis time; only the SOC path evolves during a run.
type User struct {
	ID    string
	Class string
	// BatteryKWh is the usable battery capacity.
	BatteryKWh float64
	// ConsumptionKWhPerKm is the driving energy consumption rate.
	ConsumptionKWhPerKm float64
	// InfrProb overrides the run-wide infrastructure probability when >= 0.
	InfrProb float64
}

// InfrastructureProb returns the user's charging-station access probability,
// falling back to the run default when no override is set.
func (u User) InfrastructureProb(def float64) float64 {
	if u.InfrProb >= 0 {
		return u.InfrProb
	}
	return def
}
