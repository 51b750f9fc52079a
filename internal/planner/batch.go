package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"courierplan/internal/geo"
	"courierplan/internal/integrations/csvfile"
	"courierplan/internal/params"
)

// BatchJob pairs an input CSV with one of its configuration files.
type BatchJob struct {
	Input  string
	Config string
	Output string
}

var (
	batchInput  = regexp.MustCompile(`^(\d{3}_.+)_input\.csv$`)
	batchConfig = regexp.MustCompile(`^(\d{3}_.+)_config_(.+)\.json$`)
)

// BatchJobs pairs every NNN_name_input.csv in dir with each
// NNN_name_config_X.json beside it. Results go to outDir as
// NNN_name_output_X.json. Configs without an input are skipped.
func BatchJobs(dir, outDir string) ([]BatchJob, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	inputs := map[string]string{}
	for _, e := range entries {
		if m := batchInput.FindStringSubmatch(e.Name()); m != nil && !e.IsDir() {
			inputs[m[1]] = filepath.Join(dir, e.Name())
		}
	}
	var jobs []BatchJob
	for _, e := range entries {
		m := batchConfig.FindStringSubmatch(e.Name())
		if m == nil || e.IsDir() {
			continue
		}
		in, ok := inputs[m[1]]
		if !ok {
			continue
		}
		jobs = append(jobs, BatchJob{
			Input:  in,
			Config: filepath.Join(dir, e.Name()),
			Output: filepath.Join(outDir, m[1]+"_output_"+m[2]+".json"),
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Output < jobs[j].Output })
	return jobs, nil
}

// RunFile plans the orders of a CSV file and, when output is not empty,
// writes the result document there.
func RunFile(ctx context.Context, input string, p params.Params, output string) (Result, error) {
	set, err := csvfile.Adapter{Path: input}.FetchOrders(ctx)
	if err != nil {
		return Result{}, err
	}
	res, err := Plan(ctx, Request{Orders: set, Params: p, Metric: geo.Haversine})
	if err != nil {
		return res, err
	}
	if output != "" {
		if err := SaveResult(output, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// RunBatchJob loads the job's configuration and runs its input.
func RunBatchJob(ctx context.Context, job BatchJob) (Result, error) {
	p, err := params.Load(job.Config)
	if err != nil {
		return Result{}, err
	}
	return RunFile(ctx, job.Input, p, job.Output)
}

// SaveResult writes the result document as indented JSON.
func SaveResult(path string, res Result) error {
	b, err := json.MarshalIndent(res.Document(), "", "    ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
