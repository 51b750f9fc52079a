package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"

	"courierplan/internal/geo"
	"courierplan/internal/instance"
	"courierplan/internal/integrations/csvfile"
	"courierplan/internal/params"
	"courierplan/internal/planner"
	"courierplan/internal/solution"
)

// paramFlags are the parameter selection and overrides shared by solve,
// quick and random.
type paramFlags struct {
	config       string
	model        string
	maxCalcTime  int64
	courierCost  int64
	trackSolver  bool
	defaultModel string
}

func (pf *paramFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&pf.config, "c", "", "JSON or YAML file with the VRP parameters")
	fs.StringVar(&pf.model, "m", "", "model type, overrides the config file")
	fs.Int64Var(&pf.maxCalcTime, "mx", 0, "maximum calculation time in seconds")
	fs.Int64Var(&pf.courierCost, "cc", 0, "cost added per used courier")
	fs.BoolVar(&pf.trackSolver, "tsp", false, "log the solver cost progress")
}

func (pf *paramFlags) params() (params.Params, error) {
	var p params.Params
	if pf.model == "" && pf.config == "" {
		pf.model = pf.defaultModel
	}
	switch {
	case pf.config != "":
		var err error
		if p, err = params.Load(pf.config); err != nil {
			return p, err
		}
		if pf.model != "" {
			m, err := params.ParseMode(pf.model)
			if err != nil {
				return p, &params.ConfigError{Field: "model_type", Err: err}
			}
			p.Mode = m
		}
	case pf.model != "":
		m, err := params.ParseMode(pf.model)
		if err != nil {
			return p, &params.ConfigError{Field: "model_type", Err: err}
		}
		p = params.Default(m)
	default:
		return p, &params.ConfigError{Field: "model_type", Err: errors.New("a model type is required without a config file")}
	}
	if pf.maxCalcTime > 0 {
		p.MaxCalcTime = pf.maxCalcTime
	}
	if pf.courierCost > 0 {
		p.CourierCost = pf.courierCost
	}
	if pf.trackSolver {
		p.TrackSolverProgress = true
	}
	return p, p.Validate()
}

func cmdSolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("solve", flag.ContinueOnError)
	input := fs.String("i", "", "input orders CSV")
	output := fs.String("o", "", "output JSON file")
	pf := paramFlags{}
	pf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		fs.Usage()
		return errUsage
	}
	p, err := pf.params()
	if err != nil {
		return err
	}
	fmt.Println("VRP parameters:")
	fmt.Println(p)

	res, err := planner.RunFile(ctx, *input, p, *output)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func printResult(res planner.Result) {
	if res.Quick != nil {
		fmt.Printf("routes: %v\ntotal cost: %d\n", res.Quick.Routes, res.Quick.TotalCost)
		return
	}
	sol := res.Solution
	fmt.Printf("solver: %s (%d) in %.2fs\n", sol.Solver.Status, sol.Solver.StatusCode, sol.Solver.Duration)
	if sol.Summary != nil {
		s := sol.Summary
		fmt.Printf("vehicles=%d time=%d distance=%d cost=%d load=%d\n", s.NumVehiclesUsed, s.TotalTime, s.TotalDistance, s.TotalCost, s.TotalLoad)
	}
	if sol.Filter != nil && sol.Filter.NFiltered > 0 {
		fmt.Printf("filtered orders: %d\n", sol.Filter.NFiltered)
	}
	if sol.Succeeded() {
		fmt.Println(solution.Verify(sol))
	}
}

func cmdVerify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	input := fs.String("i", "", "solution JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		fs.Usage()
		return errUsage
	}
	sol, err := solution.Load(*input)
	if err != nil {
		return err
	}
	rep := solution.Verify(sol)
	fmt.Println(rep)
	if !rep.OK {
		return fmt.Errorf("%d violations", len(rep.Violations))
	}
	return nil
}

func cmdQuick(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("quick", flag.ContinueOnError)
	input := fs.String("i", "", "input orders CSV")
	maxCalcTime := fs.Int64("mx", 0, "maximum calculation time in seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		fs.Usage()
		return errUsage
	}
	set, err := csvfile.Adapter{Path: *input}.FetchOrders(ctx)
	if err != nil {
		return err
	}
	p := params.Default(params.ModeQuick)
	if *maxCalcTime > 0 {
		p.MaxCalcTime = *maxCalcTime
	}
	q, err := planner.Quick(ctx, set, p, geo.Haversine)
	if err != nil {
		return err
	}
	printResult(planner.Result{Quick: &q})
	return nil
}

func cmdBatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	dir := fs.String("d", "tests", "directory with NNN_name_input.csv and NNN_name_config_X.json files")
	output := fs.String("o", "", "output directory, defaults to the input directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *output == "" {
		*output = *dir
	}
	jobs, err := planner.BatchJobs(*dir, *output)
	if err != nil {
		return err
	}
	failed := 0
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Printf("solving %s with %s -> %s", job.Input, job.Config, job.Output)
		res, err := planner.RunBatchJob(ctx, job)
		if err != nil {
			failed++
			log.Printf("job %s: %v", job.Config, err)
			continue
		}
		log.Printf("job %s: %s", job.Config, res.Status())
	}
	log.Printf("batch done jobs=%d failed=%d", len(jobs), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(jobs))
	}
	return nil
}

var sweepHeader = []string{
	"n_orders", "model", "duration", "status_code", "status", "error",
	"n_max_couriers", "total_time", "total_distance", "total_cost", "total_load",
	"num_vehicles_used", "n_filtered",
}

// cmdRandom solves random instances of growing size and writes one CSV row
// of solver figures per instance.
func cmdRandom(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("random", flag.ContinueOnError)
	n := fs.Int("n", 10, "number of orders of the first instance")
	nMax := fs.Int("n-max", 0, "largest instance, stepping by 10 from n")
	noWindow := fs.Bool("nw", false, "give every order the whole day as delivery window")
	output := fs.String("o", "out.csv", "output CSV file")
	seed := fs.Int64("seed", 1, "random seed")
	pf := paramFlags{defaultModel: params.ModeScheduled.String()}
	pf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *nMax == 0 {
		*nMax = *n
	}
	if *n <= 0 || *nMax < *n {
		return fmt.Errorf("%w: need 0 < n <= n-max, got n=%d n-max=%d", errUsage, *n, *nMax)
	}
	p, err := pf.params()
	if err != nil {
		return err
	}

	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(sweepHeader); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(*seed))
	for size := *n; size <= *nMax; size += 10 {
		if err := ctx.Err(); err != nil {
			return err
		}
		set := instance.RandomOrders(rng, instance.RandomSpec{Orders: size, MaxDemand: 1, TightWindows: !*noWindow})
		log.Printf("running solver orders=%d", size)
		res, planErr := planner.Plan(ctx, planner.Request{Orders: set, Params: p, Metric: geo.Euclidean})
		if err := w.Write(sweepRow(size, p, res, planErr)); err != nil {
			return err
		}
		w.Flush()
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	log.Printf("wrote %s", *output)
	return nil
}

func sweepRow(size int, p params.Params, res planner.Result, err error) []string {
	i := strconv.Itoa
	i64 := func(v int64) string { return strconv.FormatInt(v, 10) }
	row := make([]string, len(sweepHeader))
	row[0], row[1] = i(size), p.Mode.String()
	row[3], row[4] = i(res.StatusCode()), res.Status()
	if err != nil {
		row[4], row[5] = solution.StatusException.String(), err.Error()
		return row
	}
	sol := res.Solution
	if sol == nil {
		return row
	}
	row[2] = strconv.FormatFloat(sol.Solver.Duration, 'f', 3, 64)
	row[5] = sol.Solver.Error
	if sol.Meta != nil {
		row[6] = i(sol.Meta.NMaxCouriers)
	}
	if s := sol.Summary; s != nil {
		row[7], row[8], row[9], row[10], row[11] = i64(s.TotalTime), i64(s.TotalDistance), i64(s.TotalCost), i64(s.TotalLoad), i(s.NumVehiclesUsed)
	}
	if sol.Filter != nil {
		row[12] = i(sol.Filter.NFiltered)
	}
	return row
}
