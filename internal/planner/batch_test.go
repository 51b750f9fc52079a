package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierplan/internal/solution"
)

const batchCSV = "order_id,pickup_lat,pickup_lon,delivery_lat,delivery_lon,order_number_items,time_window_start_s,time_window_end_s\n" +
	"1,52.52,13.405,52.521,13.405,1,0,86400\n" +
	"2,52.52,13.405,52.522,13.405,1,0,86400\n"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestBatchJobsPairsInputsAndConfigs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_small_input.csv", batchCSV)
	writeFile(t, dir, "001_small_config_distance.json", `{"model_type":"distance"}`)
	writeFile(t, dir, "001_small_config_time.json", `{"model_type":"time"}`)
	writeFile(t, dir, "002_orphan_config_live.json", `{"model_type":"live"}`)
	writeFile(t, dir, "notes.txt", "")

	jobs, err := BatchJobs(dir, "out")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, filepath.Join("out", "001_small_output_distance.json"), jobs[0].Output)
	assert.Equal(t, filepath.Join(dir, "001_small_input.csv"), jobs[0].Input)
	assert.Equal(t, filepath.Join(dir, "001_small_config_distance.json"), jobs[0].Config)
	assert.Equal(t, filepath.Join("out", "001_small_output_time.json"), jobs[1].Output)
}

func TestRunBatchJobWritesSolution(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_small_input.csv", batchCSV)
	writeFile(t, dir, "001_small_config_distance.json", `{"model_type":"distance","max_calc_time":2}`)
	jobs, err := BatchJobs(dir, dir)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	res, err := RunBatchJob(t.Context(), jobs[0])
	require.NoError(t, err)
	require.True(t, res.Succeeded())

	sol, err := solution.Load(jobs[0].Output)
	require.NoError(t, err)
	assert.Equal(t, "distance", sol.Solver.Model)
	assert.True(t, solution.Verify(sol).OK)
}

func TestRunBatchJobBadConfig(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "001_x_input.csv", batchCSV)
	cfg := writeFile(t, dir, "001_x_config_bad.json", `{"model_type":"teleport"}`)
	_, err := RunBatchJob(t.Context(), BatchJob{Input: in, Config: cfg, Output: filepath.Join(dir, "o.json")})
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "o.json"))
}
