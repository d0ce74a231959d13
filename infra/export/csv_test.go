package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwhlab/evdemand/core/model"
	"github.com/kwhlab/evdemand/core/simulation"
)

func fixtureRun() *simulation.RunResult {
	h := model.Horizon{
		StartDay:  time.Date(2016, 1, 4, 0, 0, 0, 0, time.UTC),
		SimDays:   1,
		DummyDays: 1,
	}
	steps := h.Steps()
	mob := make([]float64, steps)
	chg := make([]float64, steps)
	userMob := make([]float64, steps)
	userChg := make([]float64, steps)
	start, end := h.ReportedRange()
	for step := start; step < end; step++ {
		mob[step] = 1.5
		chg[step] = 3
		userMob[step] = 1.5
		userChg[step] = 3
	}
	return &simulation.RunResult{
		RunID:   "test-run",
		Country: "IT",
		Horizon: h,
		Users: []simulation.UserResult{{
			User:       model.User{ID: "it-commuter-0001", Class: "commuter", BatteryKWh: 40, ConsumptionKWhPerKm: 0.2},
			DrivingKW:  userMob,
			ChargingKW: userChg,
			Sessions: []model.ChargingSession{
				{UserID: "it-commuter-0001", State: model.SessionCompleted},
				{UserID: "it-commuter-0001", State: model.SessionNoInfrastructure},
			},
		}},
		MobilityKW: mob,
		ChargingKW: chg,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteProfilesDropsDummyDays(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	res := fixtureRun()
	require.NoError(t, w.WriteProfiles(res))

	rows := readCSV(t, filepath.Join(dir, "charging_profile_IT.csv"))
	require.Len(t, rows, 1+1440, "header plus one reported day")
	assert.Equal(t, []string{"time", "power_kw"}, rows[0])
	assert.Equal(t, "2016-01-04T00:00:00Z", rows[1][0], "first row is the reported start, not the padding")
	assert.Equal(t, "3.0000", rows[1][1])

	rows = readCSV(t, filepath.Join(dir, "mobility_profile_IT.csv"))
	assert.Equal(t, "1.5000", rows[1][1])
}

func TestWriteUserSummary(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	require.NoError(t, w.WriteUserSummary(fixtureRun()))

	rows := readCSV(t, filepath.Join(dir, "users_IT.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, "it-commuter-0001", rows[1][0])
	assert.Equal(t, "commuter", rows[1][1])
	assert.Equal(t, "1", rows[1][6], "one completed session")
	assert.Equal(t, "1", rows[1][8], "one session without infrastructure")
}
