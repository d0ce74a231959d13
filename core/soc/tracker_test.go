package soc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwhlab/evdemand/core/model"
)

func TestAdvanceDrivingAndCharging(t *testing.T) {
	u := model.User{ID: "u1", BatteryKWh: 40}
	tr := NewTracker(u, 0.5)
	require.InDelta(t, 20, tr.SoC(), 1e-9)

	// One hour of driving at 6 kW.
	for step := 0; step < 60; step++ {
		tr.Advance(step, 6, 0)
	}
	assert.InDelta(t, 14, tr.SoC(), 1e-9)

	// One hour of charging at 11 kW.
	for step := 60; step < 120; step++ {
		tr.Advance(step, 0, 11)
	}
	assert.InDelta(t, 25, tr.SoC(), 1e-9)
	assert.Empty(t, tr.Unmet())
}

func TestDrivingBelowZeroRecordsUnmetDemand(t *testing.T) {
	u := model.User{ID: "u1", BatteryKWh: 1}
	tr := NewTracker(u, 1)

	// 120 kW drains 1 kWh in 30 steps; afterwards every step is unmet.
	for step := 0; step < 60; step++ {
		got := tr.Advance(step, 120, 0)
		assert.GreaterOrEqual(t, got, 0.0)
	}
	assert.Zero(t, tr.SoC())
	unmet := tr.Unmet()
	require.NotEmpty(t, unmet)
	assert.Equal(t, "u1", unmet[0].UserID)
	var deficit float64
	for _, e := range unmet {
		deficit += e.DeficitKWh
	}
	// Total demand 120 kW for 1 h minus the 1 kWh the battery held.
	assert.InDelta(t, 119, deficit, 1e-6)
}

func TestChargingClampsAtCapacity(t *testing.T) {
	u := model.User{ID: "u1", BatteryKWh: 10}
	tr := NewTracker(u, 0.99)
	for step := 0; step < 60; step++ {
		got := tr.Advance(step, 0, 22)
		assert.LessOrEqual(t, got, 10.0)
	}
	assert.InDelta(t, 10, tr.SoC(), 1e-9)
	assert.True(t, tr.Full())
}

func TestMaxChargeKWNeverOvershoots(t *testing.T) {
	u := model.User{ID: "u1", BatteryKWh: 40}
	tr := NewTracker(u, 0.999)
	kw := tr.MaxChargeKW()
	tr.Advance(0, 0, kw)
	assert.InDelta(t, 40, tr.SoC(), 1e-9)
	assert.Zero(t, tr.MaxChargeKW())
}

func TestInitialFractionClamped(t *testing.T) {
	u := model.User{ID: "u1", BatteryKWh: 40}
	assert.InDelta(t, 40, NewTracker(u, 2).SoC(), 1e-9)
	assert.Zero(t, NewTracker(u, -1).SoC())
}
