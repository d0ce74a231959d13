package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwhlab/evdemand/core/model"
)

func testHorizon() model.Horizon {
	return model.Horizon{
		StartDay:  time.Date(2016, 1, 4, 0, 0, 0, 0, time.UTC),
		SimDays:   7,
		DummyDays: 2,
	}
}

func testCountry(users int) CountryConfig {
	cc := DefaultRegistry()["IT"]
	cc.Users = users
	return cc
}

func TestRegistryMissingCountry(t *testing.T) {
	reg := DefaultRegistry()
	_, err := reg.Country("XX")
	require.Error(t, err)
	require.True(t, model.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "XX")
}

func TestRegistryInvalidShares(t *testing.T) {
	cc := testCountry(10)
	cc.Classes[0].Share = 0.9 // shares now sum to 1.3
	reg := Registry{"IT": cc}
	_, err := reg.Country("IT")
	require.Error(t, err)
	require.True(t, model.IsConfigurationError(err))
}

func TestPopulationDeterministicAndMixed(t *testing.T) {
	h := testHorizon()
	cc := testCountry(100)
	a := New("IT", cc, h, 99).Population()
	b := New("IT", cc, h, 99).Population()
	require.Equal(t, a, b, "same seed must yield the same population")

	counts := map[string]int{}
	for _, u := range a {
		counts[u.Class]++
		assert.Greater(t, u.BatteryKWh, 0.0)
		assert.Greater(t, u.ConsumptionKWhPerKm, 0.0)
	}
	assert.Equal(t, 60, counts["commuter"], "quota-based class assignment")
	assert.Equal(t, 40, counts["occasional"])

	c := New("IT", cc, h, 100).Population()
	require.NotEqual(t, a, c, "different seed must change the jitter")
}

func TestSampleUserDeterministic(t *testing.T) {
	h := testHorizon()
	cc := testCountry(5)
	s := New("IT", cc, h, 1234)
	users := s.Population()
	for i, u := range users {
		a := s.SampleUser(u, s.UserRand(i))
		b := s.SampleUser(u, s.UserRand(i))
		require.Equalf(t, a, b, "user %s must resample identically", u.ID)
	}
}

func TestSampleUserContiguousCoverage(t *testing.T) {
	h := testHorizon()
	cc := testCountry(30)
	s := New("IT", cc, h, 5)
	for i, u := range s.Population() {
		events := s.SampleUser(u, s.UserRand(i))
		require.NotEmpty(t, events)
		assert.Zero(t, events[0].Start)
		for j := 1; j < len(events); j++ {
			assert.Equalf(t, events[j-1].End, events[j].Start, "user %s events %d/%d", u.ID, j-1, j)
		}
		assert.Equal(t, h.Steps(), events[len(events)-1].End)
		for _, e := range events {
			assert.Greater(t, e.End, e.Start)
			if e.State == model.Driving {
				assert.Greater(t, e.DistanceKm, 0.0)
			} else {
				assert.Zero(t, e.DistanceKm)
			}
		}
	}
}

func TestSampleUserProducesTrips(t *testing.T) {
	h := testHorizon()
	cc := testCountry(20)
	s := New("IT", cc, h, 6)
	var trips int
	for i, u := range s.Population() {
		for _, e := range s.SampleUser(u, s.UserRand(i)) {
			if e.State == model.Driving {
				trips++
				assert.GreaterOrEqual(t, e.Duration(), minTripSteps)
				assert.LessOrEqual(t, e.Duration(), maxTripSteps)
			}
		}
	}
	// 20 users over 11 days with ~1-2 trips a day.
	assert.Greater(t, trips, 100)
}

func TestDummyDaysSampledLikeInteriorDays(t *testing.T) {
	// A horizon shifted by its padding must produce trips in the dummy
	// days too: they stabilise SOC and are not structurally different.
	h := model.Horizon{
		StartDay:  time.Date(2016, 6, 6, 0, 0, 0, 0, time.UTC),
		SimDays:   3,
		DummyDays: 3,
	}
	cc := testCountry(20)
	s := New("IT", cc, h, 11)
	var inPadding int
	start, end := h.ReportedRange()
	for i, u := range s.Population() {
		for _, e := range s.SampleUser(u, s.UserRand(i)) {
			if e.State == model.Driving && (e.End <= start || e.Start >= end) {
				inPadding++
			}
		}
	}
	assert.Greater(t, inPadding, 0, "padding days must contain trips")
}
