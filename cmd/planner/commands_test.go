package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierplan/internal/instance"
	"courierplan/internal/params"
	"courierplan/internal/planner"
	"courierplan/internal/solution"
)

func TestParamFlags(t *testing.T) {
	pf := paramFlags{model: "time", maxCalcTime: 4, courierCost: 9, trackSolver: true}
	p, err := pf.params()
	require.NoError(t, err)
	assert.Equal(t, params.ModeTime, p.Mode)
	assert.Equal(t, int64(4), p.MaxCalcTime)
	assert.Equal(t, int64(9), p.CourierCost)
	assert.True(t, p.TrackSolverProgress)

	_, err = (&paramFlags{}).params()
	var ce *params.ConfigError
	assert.True(t, errors.As(err, &ce))

	p, err = (&paramFlags{defaultModel: "scheduled"}).params()
	require.NoError(t, err)
	assert.Equal(t, params.ModeScheduled, p.Mode)
}

func TestParamFlagsConfigWithModelOverride(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("model_type: live\ncourier_cost: 12\n"), 0o644))
	pf := paramFlags{config: cfg, model: "distance", defaultModel: "scheduled"}
	p, err := pf.params()
	require.NoError(t, err)
	assert.Equal(t, params.ModeDistance, p.Mode)
	assert.Equal(t, int64(12), p.CourierCost)
}

func TestSweepRow(t *testing.T) {
	p := params.Default(params.ModeScheduled)
	res := planner.Result{Solution: &solution.Solution{
		Meta:    &instance.Meta{NOrders: 10, NMaxCouriers: 10},
		Summary: &solution.Summary{TotalTime: 100, TotalDistance: 200, TotalCost: 300, TotalLoad: 10, NumVehiclesUsed: 2},
		Filter:  &instance.FilterStats{NFiltered: 1},
		Solver:  solution.SolverInfo{Model: "scheduled", Duration: 0.5, StatusCode: solution.StatusSuccess, Status: "success"},
	}}
	row := sweepRow(10, p, res, nil)
	require.Len(t, row, len(sweepHeader))
	assert.Equal(t, []string{"10", "scheduled", "0.500", "1", "success", "", "10", "100", "200", "300", "10", "2", "1"}, row)

	row = sweepRow(20, p, planner.Result{}, errors.New("boom"))
	assert.Equal(t, "exception", row[4])
	assert.Equal(t, "boom", row[5])
}
