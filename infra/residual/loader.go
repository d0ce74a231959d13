// Package residual loads per-country residual-load curves used by the
// RES-aware charging policies.
package residual

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kwhlab/evdemand/core/model"
)

// Load reads <dir>/residual_load_<country>.csv and resamples the series onto
// the padded horizon's timestep grid. A missing file is not an error: the
// caller gets found == false and degrades the charging policy instead of
// failing the run.
//
// The file holds one value per row in its last column, covering the reported
// window; an optional header row is skipped. Dummy days wrap around the
// reported window so the padding sees a plausible curve.
func Load(dir, country string, h model.Horizon) ([]float64, bool, error) {
	path := filepath.Join(dir, fmt.Sprintf("residual_load_%s.csv", country))
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open residual load: %w", err)
	}
	defer f.Close()

	values, err := parse(f)
	if err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(values) == 0 {
		return nil, false, fmt.Errorf("parse %s: no data rows", path)
	}
	return resample(values, h), true, nil
}

func parse(r io.Reader) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	var values []float64
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(rec[len(rec)-1], 64)
		if err != nil {
			if row == 0 { // header
				continue
			}
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// resample stretches the series over the reported window and tiles it into
// the dummy-day padding by wrapping.
func resample(values []float64, h model.Horizon) []float64 {
	reported := h.SimDays * model.StepsPerDay
	offset := h.DummyDays * model.StepsPerDay
	out := make([]float64, h.Steps())
	for step := range out {
		rel := ((step-offset)%reported + reported) % reported
		out[step] = values[rel*len(values)/reported]
	}
	return out
}
