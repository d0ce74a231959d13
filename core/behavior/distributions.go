package behavior

import (
	"fmt"
	"math"

	"github.com/kwhlab/evdemand/core/model"
)

// ClassConfig parameterises one behavioural class of a country's population
// (e.g. commuters vs occasional drivers).
type ClassConfig struct {
	Name string `json:"name"`
	// Share is the fraction of the population belonging to this class.
	Share float64 `json:"share"`
	// BatteryKWh and ConsumptionKWhPerKm are class means; per-user values
	// are jittered around them at population-synthesis time.
	BatteryKWh          float64 `json:"battery_kwh"`
	ConsumptionKWhPerKm float64 `json:"consumption_kwh_per_km"`
	// TripsWeekday and TripsWeekend are the mean daily trip counts.
	TripsWeekday float64 `json:"trips_weekday"`
	TripsWeekend float64 `json:"trips_weekend"`
	// DepartureStartHour and DepartureEndHour bound the window in which
	// trip departures are drawn.
	DepartureStartHour int `json:"departure_start_hour"`
	DepartureEndHour   int `json:"departure_end_hour"`
	// TripDurationMeanMin is the mean trip duration in minutes and
	// TripDurationSigma the log-space spread of the lognormal draw.
	TripDurationMeanMin float64 `json:"trip_duration_mean_min"`
	TripDurationSigma   float64 `json:"trip_duration_sigma"`
	// SpeedKmh is the mean driving speed used to derive trip distances.
	SpeedKmh float64 `json:"speed_kmh"`
	// HomeReturnProb is the probability that the last trip of a day ends
	// at home.
	HomeReturnProb float64 `json:"home_return_prob"`
}

// CountryConfig holds the behavioural distribution of one country.
type CountryConfig struct {
	// Users is the synthetic population size.
	Users   int           `json:"users"`
	Classes []ClassConfig `json:"classes"`
}

// Registry maps ISO country codes to behavioural distributions.
type Registry map[string]CountryConfig

// Country returns the configuration for the given code. A missing country is
// a ConfigurationError: the caller aborts that country's run and moves on.
func (r Registry) Country(code string) (CountryConfig, error) {
	cfg, ok := r[code]
	if !ok {
		return CountryConfig{}, model.ConfigurationError{
			Country: code,
			Reason:  "no behavioural distribution configured",
		}
	}
	if err := cfg.validate(); err != nil {
		return CountryConfig{}, model.ConfigurationError{Country: code, Reason: err.Error()}
	}
	return cfg, nil
}

func (c CountryConfig) validate() error {
	if c.Users <= 0 {
		return fmt.Errorf("population size must be positive, got %d", c.Users)
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("at least one behavioural class is required")
	}
	var share float64
	for _, cls := range c.Classes {
		if cls.Name == "" {
			return fmt.Errorf("class name is required")
		}
		if cls.Share <= 0 {
			return fmt.Errorf("class %s: share must be positive", cls.Name)
		}
		if cls.BatteryKWh <= 0 || cls.ConsumptionKWhPerKm <= 0 {
			return fmt.Errorf("class %s: battery and consumption must be positive", cls.Name)
		}
		if cls.TripsWeekday < 0 || cls.TripsWeekend < 0 {
			return fmt.Errorf("class %s: trip counts must not be negative", cls.Name)
		}
		if cls.DepartureStartHour < 0 || cls.DepartureEndHour > 24 ||
			cls.DepartureStartHour >= cls.DepartureEndHour {
			return fmt.Errorf("class %s: invalid departure window", cls.Name)
		}
		if cls.TripDurationMeanMin <= 0 || cls.TripDurationSigma <= 0 {
			return fmt.Errorf("class %s: trip duration parameters must be positive", cls.Name)
		}
		if cls.SpeedKmh <= 0 {
			return fmt.Errorf("class %s: speed must be positive", cls.Name)
		}
		if cls.HomeReturnProb < 0 || cls.HomeReturnProb > 1 {
			return fmt.Errorf("class %s: home return probability outside [0,1]", cls.Name)
		}
		share += cls.Share
	}
	if math.Abs(share-1) > 1e-9 {
		return fmt.Errorf("class shares sum to %.6f, expected 1", share)
	}
	return nil
}

// DefaultRegistry returns built-in distributions for a few European
// countries, usable when the configuration file does not override them.
func DefaultRegistry() Registry {
	commuter := ClassConfig{
		Name:                "commuter",
		Share:               0.6,
		BatteryKWh:          50,
		ConsumptionKWhPerKm: 0.18,
		TripsWeekday:        2.2,
		TripsWeekend:        1.2,
		DepartureStartHour:  6,
		DepartureEndHour:    21,
		TripDurationMeanMin: 35,
		TripDurationSigma:   0.4,
		SpeedKmh:            45,
		HomeReturnProb:      0.92,
	}
	occasional := ClassConfig{
		Name:                "occasional",
		Share:               0.4,
		BatteryKWh:          40,
		ConsumptionKWhPerKm: 0.16,
		TripsWeekday:        0.9,
		TripsWeekend:        1.4,
		DepartureStartHour:  8,
		DepartureEndHour:    22,
		TripDurationMeanMin: 25,
		TripDurationSigma:   0.5,
		SpeedKmh:            38,
		HomeReturnProb:      0.95,
	}
	reg := Registry{}
	for code, users := range map[string]int{
		"IT": 200, "DE": 200, "FR": 200, "ES": 150, "UK": 150,
	} {
		reg[code] = CountryConfig{Users: users, Classes: []ClassConfig{commuter, occasional}}
	}
	return reg
}
