package residual

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwhlab/evdemand/core/model"
)

func testHorizon() model.Horizon {
	return model.Horizon{
		StartDay:  time.Date(2016, 1, 4, 0, 0, 0, 0, time.UTC),
		SimDays:   2,
		DummyDays: 1,
	}
}

func TestLoadMissingFileTolerated(t *testing.T) {
	series, found, err := Load(t.TempDir(), "IT", testHorizon())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, series)
}

func TestLoadResamplesHourlyData(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("index,residual_load\n")
	// 48 hourly values covering the 2 reported days, value == hour index.
	for i := 0; i < 48; i++ {
		fmt.Fprintf(&b, "%d,%d\n", i, i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "residual_load_IT.csv"), []byte(b.String()), 0o644))

	h := testHorizon()
	series, found, err := Load(dir, "IT", h)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, series, h.Steps())

	start, _ := h.ReportedRange()
	// First reported hour holds value 0, second value 1.
	assert.InDelta(t, 0, series[start], 1e-9)
	assert.InDelta(t, 1, series[start+60], 1e-9)
	assert.InDelta(t, 47, series[start+47*60+59], 1e-9)
	// Dummy days wrap around the reported window.
	assert.InDelta(t, 24, series[0], 1e-9, "leading padding continues the cycle")
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	data := "index,value\n0,1.5\n1,not-a-number\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "residual_load_DE.csv"), []byte(data), 0o644))
	_, _, err := Load(dir, "DE", testHorizon())
	require.Error(t, err)
}

func TestLoadEmptyFileIsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "residual_load_FR.csv"), []byte("index,value\n"), 0o644))
	_, _, err := Load(dir, "FR", testHorizon())
	require.Error(t, err)
}
