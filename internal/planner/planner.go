// Package planner runs one planning request end to end: orders are laid out
// into an instance, solved under the requested model type and returned as a
// solution document.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log"

	"courierplan/internal/geo"
	"courierplan/internal/instance"
	"courierplan/internal/metrics"
	"courierplan/internal/obs"
	"courierplan/internal/opt"
	"courierplan/internal/params"
	"courierplan/internal/quickvrp"
	"courierplan/internal/solution"
	"courierplan/internal/vrp"
)

var ErrNoOrders = errors.New("planner: no orders")

// Request is one planning job.
type Request struct {
	Orders instance.OrderSet
	Params params.Params
	// Metric defaults to geo.Haversine.
	Metric geo.Metric
	// OnProgress receives solver candidates of routing-model runs.
	OnProgress func(vrp.Progress)
}

// Result carries the solution of a routing-model run, or the quick routes when
// the model type is quick.
type Result struct {
	Solution *solution.Solution `json:"solution,omitempty"`
	Quick    *quickvrp.Result   `json:"quick,omitempty"`
}

// Status is the solver status string of the run.
func (r Result) Status() string {
	if r.Solution != nil {
		return r.Solution.Solver.Status
	}
	if r.Quick != nil {
		return r.Quick.Status.String()
	}
	return solution.StatusNotSolved.String()
}

// StatusCode is the numeric solver status of the run.
func (r Result) StatusCode() int {
	if r.Solution != nil {
		return int(r.Solution.Solver.StatusCode)
	}
	if r.Quick != nil {
		return int(r.Quick.Status)
	}
	return int(solution.StatusNotSolved)
}

// Succeeded reports whether the run produced routes.
func (r Result) Succeeded() bool {
	if r.Solution != nil {
		return r.Solution.Succeeded()
	}
	return r.Quick != nil && r.Quick.Status == opt.StatusSuccess
}

// Document returns the solution document of a model run or the quick routes.
func (r Result) Document() any {
	if r.Solution != nil {
		return r.Solution
	}
	return r.Quick
}

// Plan validates the parameters and dispatches on the model type.
func Plan(ctx context.Context, req Request) (res Result, err error) {
	defer obs.Time(ctx, "planner.plan")(&err)

	if err := req.Params.Validate(); err != nil {
		return Result{}, err
	}
	if req.Metric == nil {
		req.Metric = geo.Haversine
	}
	if req.Params.Mode == params.ModeQuick {
		q, err := Quick(ctx, req.Orders, req.Params, req.Metric)
		if err != nil {
			return Result{}, err
		}
		return Result{Quick: &q}, nil
	}

	in, err := Instance(ctx, req.Orders, req.Params, req.Metric)
	if err != nil {
		return Result{}, err
	}
	sol, err := vrp.Solve(in, req.Params, vrp.Options{OnProgress: req.OnProgress})
	if err != nil {
		return Result{}, fmt.Errorf("planner: solve: %w", err)
	}
	if sol.Succeeded() {
		log.Printf("[planner] run_id=%s model=%s vehicles=%d cost=%d", obs.RunID(ctx), req.Params.Mode, sol.Summary.NumVehiclesUsed, sol.Summary.TotalCost)
	}
	return Result{Solution: sol}, nil
}

// Instance builds the solver instance for a routing-model run and records the
// filter counts.
func Instance(ctx context.Context, set instance.OrderSet, p params.Params, metric geo.Metric) (in *instance.Instance, err error) {
	defer obs.Time(ctx, "planner.instance")(&err)

	in, err = instance.Build(set, p, metric)
	if err != nil {
		return nil, fmt.Errorf("planner: build instance: %w", err)
	}
	if err := in.Validate(); err != nil && in.NumNodes() > 0 {
		return nil, err
	}
	if in.Filter != nil {
		metrics.ObserveFilter(in.Filter.Counts())
		if in.Filter.NFiltered > 0 {
			log.Printf("[planner] run_id=%s filtered=%d kept=%d", obs.RunID(ctx), in.Filter.NFiltered, len(set.Orders)-in.Filter.NFiltered)
		}
	}
	return in, nil
}

// Quick sequences the deliveries by distance alone. A single distinct pickup
// is shared by every courier; otherwise each order leaves from its own pickup.
func Quick(ctx context.Context, set instance.OrderSet, p params.Params, metric geo.Metric) (res quickvrp.Result, err error) {
	defer obs.Time(ctx, "planner.quick")(&err)

	if len(set.Orders) == 0 {
		return quickvrp.Result{}, ErrNoOrders
	}
	pb := quickvrp.Problem{Metric: metric, TimeLimit: p.TimeLimit()}
	pickups := map[geo.Point]struct{}{}
	for _, o := range set.Orders {
		pickups[o.Pickup] = struct{}{}
		pb.Visits = append(pb.Visits, o.Delivery)
	}
	if len(pickups) == 1 {
		pb.Starts = []geo.Point{set.Orders[0].Pickup}
	} else {
		for _, o := range set.Orders {
			pb.Starts = append(pb.Starts, o.Pickup)
		}
	}
	res, err = quickvrp.Solve(pb)
	if err != nil {
		return res, err
	}
	metrics.Solves.WithLabelValues(params.ModeQuick.String(), res.Status.String()).Inc()
	return res, nil
}
