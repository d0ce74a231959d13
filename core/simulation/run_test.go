package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwhlab/evdemand/core/behavior"
	"github.com/kwhlab/evdemand/core/charging"
	"github.com/kwhlab/evdemand/core/model"
	"github.com/kwhlab/evdemand/infra/logger"
)

func testRunner(t *testing.T, seed uint64, workers int) *Runner {
	t.Helper()
	h := model.Horizon{
		StartDay:  time.Date(2016, 1, 4, 0, 0, 0, 0, time.UTC),
		SimDays:   7,
		DummyDays: 2,
	}
	cc := behavior.DefaultRegistry()["FR"]
	cc.Users = 25
	sampler := behavior.New("FR", cc, h, seed)

	cfg := charging.Config{
		Enabled:     true,
		Mode:        "uncontrolled",
		InfrProb:    0.8,
		StationsKW:  []float64{3.7, 11, 120},
		StationProb: []float64{0.6, 0.3, 0.1},
		NightWindow: charging.Window{StartHour: 0, EndHour: 6},
		InitialSoC:  1,
	}
	eng, err := charging.New(cfg, h, nil, logger.NopLogger{})
	require.NoError(t, err)
	return NewRunner("FR", h, sampler, eng, workers, logger.NopLogger{})
}

func TestRunDeterministicAcrossWorkerCounts(t *testing.T) {
	seq, err := testRunner(t, 21, 1).Run(context.Background())
	require.NoError(t, err)
	par, err := testRunner(t, 21, 8).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, len(seq.Users), len(par.Users))
	for i := range seq.Users {
		require.Equalf(t, seq.Users[i].Events, par.Users[i].Events, "user %d events", i)
		require.Equalf(t, seq.Users[i].ChargingKW, par.Users[i].ChargingKW, "user %d charging", i)
		require.Equalf(t, seq.Users[i].SoCKWh, par.Users[i].SoCKWh, "user %d soc", i)
	}
	require.Equal(t, seq.MobilityKW, par.MobilityKW, "totals must be bit-identical")
	require.Equal(t, seq.ChargingKW, par.ChargingKW)
}

func TestRunAggregationMatchesUsers(t *testing.T) {
	res, err := testRunner(t, 22, 4).Run(context.Background())
	require.NoError(t, err)

	steps := res.Horizon.Steps()
	require.Len(t, res.MobilityKW, steps)
	require.Len(t, res.ChargingKW, steps)
	for step := 0; step < steps; step += 997 {
		var mob, chg float64
		for _, u := range res.Users {
			mob += u.DrivingKW[step]
			chg += u.ChargingKW[step]
		}
		assert.InDelta(t, mob, res.MobilityKW[step], 1e-9)
		assert.InDelta(t, chg, res.ChargingKW[step], 1e-9)
	}
}

func TestRunSoCBoundsAndEnergyConservation(t *testing.T) {
	res, err := testRunner(t, 23, 4).Run(context.Background())
	require.NoError(t, err)

	for _, u := range res.Users {
		var driven, unmet float64
		for _, kw := range u.DrivingKW {
			driven += kw / 60
		}
		for _, e := range u.Unmet {
			unmet += e.DeficitKWh
		}
		var charged float64
		for _, kw := range u.ChargingKW {
			charged += kw / 60
		}
		last := u.SoCKWh[len(u.SoCKWh)-1]
		// The run starts with a full battery: driven energy minus the
		// recorded shortfall equals charged energy plus the SOC drawdown.
		assert.InDeltaf(t, driven-unmet, charged+u.User.BatteryKWh-last, 1e-6, "user %s", u.User.ID)

		for step, soc := range u.SoCKWh {
			require.GreaterOrEqualf(t, soc, 0.0, "user %s step %d", u.User.ID, step)
			require.LessOrEqualf(t, soc, u.User.BatteryKWh+1e-9, "user %s step %d", u.User.ID, step)
		}
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testRunner(t, 24, 2).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCountrySeedDiffersPerCountry(t *testing.T) {
	assert.NotEqual(t, CountrySeed(1, "IT"), CountrySeed(1, "DE"))
	assert.Equal(t, CountrySeed(1, "IT"), CountrySeed(1, "IT"))
}

func TestSessionCountsAndUnmet(t *testing.T) {
	res, err := testRunner(t, 25, 4).Run(context.Background())
	require.NoError(t, err)
	counts := res.SessionCounts()
	var total int
	for _, n := range counts {
		total += n
	}
	var want int
	for _, u := range res.Users {
		want += len(u.Sessions)
	}
	assert.Equal(t, want, total)
	assert.GreaterOrEqual(t, res.UnmetCount(), 0)
}
