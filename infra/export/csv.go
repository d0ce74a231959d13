// Package export writes simulation results to CSV files for downstream
// analysis.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kwhlab/evdemand/core/aggregate"
	"github.com/kwhlab/evdemand/core/model"
	"github.com/kwhlab/evdemand/core/simulation"
)

// Writer exports run results under a base directory, one file set per
// country. Only the reported window is written; dummy days are dropped.
type Writer struct {
	dir string
}

// NewWriter creates the export directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// WriteProfiles writes the aggregated mobility and charging profiles.
func (w *Writer) WriteProfiles(res *simulation.RunResult) error {
	if err := w.writeSeries(fmt.Sprintf("mobility_profile_%s.csv", res.Country), res.Horizon, res.MobilityKW); err != nil {
		return err
	}
	return w.writeSeries(fmt.Sprintf("charging_profile_%s.csv", res.Country), res.Horizon, res.ChargingKW)
}

func (w *Writer) writeSeries(name string, h model.Horizon, series []float64) error {
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"time", "power_kw"}); err != nil {
		return err
	}
	start, end := h.ReportedRange()
	for step := start; step < end; step++ {
		rec := []string{
			h.TimeAt(step).Format(time.RFC3339),
			strconv.FormatFloat(series[step], 'f', 4, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteUserSummary writes one row per user with energy totals, session
// outcomes and unmet-demand counts.
func (w *Writer) WriteUserSummary(res *simulation.RunResult) error {
	f, err := os.Create(filepath.Join(w.dir, fmt.Sprintf("users_%s.csv", res.Country)))
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{
		"user_id", "class", "battery_kwh", "consumption_kwh_per_km",
		"driving_kwh", "charged_kwh",
		"sessions_completed", "sessions_aborted", "sessions_no_infrastructure",
		"unmet_demand_events",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, u := range res.Users {
		counts := map[model.SessionState]int{}
		for _, s := range u.Sessions {
			counts[s.State]++
		}
		rec := []string{
			u.User.ID,
			u.User.Class,
			strconv.FormatFloat(u.User.BatteryKWh, 'f', 2, 64),
			strconv.FormatFloat(u.User.ConsumptionKWhPerKm, 'f', 4, 64),
			strconv.FormatFloat(aggregate.EnergyKWh(u.DrivingKW, model.StepMinutes), 'f', 2, 64),
			strconv.FormatFloat(aggregate.EnergyKWh(u.ChargingKW, model.StepMinutes), 'f', 2, 64),
			strconv.Itoa(counts[model.SessionCompleted]),
			strconv.Itoa(counts[model.SessionAborted]),
			strconv.Itoa(counts[model.SessionNoInfrastructure]),
			strconv.Itoa(len(u.Unmet)),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
