// Package quickvrp sequences visits from one or more start locations by
// distance alone. The cost of returning to a start is zero.
package quickvrp

import (
	"errors"
	"fmt"
	"math"
	"time"

	"courierplan/internal/geo"
	"courierplan/internal/opt"
)

var ErrStartCount = errors.New("quickvrp: need one start or one start per visit")

// Problem is a distance-only routing request.
type Problem struct {
	// Starts holds a single shared start, or one start per visit.
	Starts            []geo.Point
	Visits            []geo.Point
	Metric            geo.Metric
	ExtraCostPerVisit float64
	TimeLimit         time.Duration
}

// Result lists routes as indices into Problem.Visits. Unused vehicles are omitted.
type Result struct {
	Routes    [][]int    `json:"routes"`
	TotalCost int64      `json:"total_cost"`
	Status    opt.Status `json:"-"`
}

func (p Problem) multiStart() bool { return len(p.Starts) > 1 }

// uniqueStarts returns the distinct starts in first-seen order and, per visit,
// the position of its start among them.
func (p Problem) uniqueStarts() ([]geo.Point, []int) {
	if !p.multiStart() {
		return p.Starts[:1], make([]int, len(p.Visits))
	}
	var uniq []geo.Point
	seen := map[geo.Point]int{}
	of := make([]int, len(p.Visits))
	for i, s := range p.Starts {
		at, ok := seen[s]
		if !ok {
			at = len(uniq)
			seen[s] = at
			uniq = append(uniq, s)
		}
		of[i] = at
	}
	return uniq, of
}

// CostMatrix returns the node cost matrix: unique starts first, then visits.
func (p Problem) CostMatrix() [][]int64 {
	starts, _ := p.uniqueStarts()
	ns := len(starts)
	n := ns + len(p.Visits)
	out := make([][]int64, n)
	for i := range out {
		out[i] = make([]int64, n)
		for j := range out[i] {
			switch {
			case i == j, j < ns:
			case i < ns:
				out[i][j] = int64(math.RoundToEven(p.Metric(starts[i], p.Visits[j-ns])))
			default:
				out[i][j] = int64(math.RoundToEven(p.Metric(p.Visits[i-ns], p.Visits[j-ns]) + p.ExtraCostPerVisit))
			}
		}
	}
	return out
}

// Solve runs path-cheapest-arc plus local search within the time limit.
func Solve(p Problem) (Result, error) {
	if len(p.Visits) == 0 {
		return Result{Status: opt.StatusSuccess}, nil
	}
	if len(p.Starts) == 0 || (p.multiStart() && len(p.Starts) != len(p.Visits)) {
		return Result{}, fmt.Errorf("%w: %d starts for %d visits", ErrStartCount, len(p.Starts), len(p.Visits))
	}
	if p.Metric == nil {
		p.Metric = geo.Haversine
	}
	starts, of := p.uniqueStarts()
	ns := len(starts)
	cost := p.CostMatrix()
	vehicles := len(p.Visits)

	var (
		mgr *opt.IndexManager
		err error
	)
	if p.multiStart() {
		begin := make([]int, vehicles)
		end := make([]int, vehicles)
		copy(begin, of)
		mgr, err = opt.NewIndexManagerWithDepots(len(cost), vehicles, begin, end)
	} else {
		mgr, err = opt.NewIndexManager(len(cost), vehicles, 0)
	}
	if err != nil {
		return Result{}, fmt.Errorf("quickvrp: %w", err)
	}
	model := opt.NewModel(mgr)
	cb := model.RegisterTransitCallback(func(from, to int64) int64 {
		return cost[mgr.IndexToNode(from)][mgr.IndexToNode(to)]
	})
	if err := model.SetArcCostEvaluatorOfAllVehicles(cb); err != nil {
		return Result{}, fmt.Errorf("quickvrp: %w", err)
	}
	if p.multiStart() {
		// a visit rides a vehicle leaving from its own start
		for k := range p.Visits {
			var allowed []int
			for v := 0; v < vehicles; v++ {
				if of[v] == of[k] {
					allowed = append(allowed, v)
				}
			}
			if err := model.SetAllowedVehicles(mgr.NodeToIndex(ns+k), allowed); err != nil {
				return Result{}, fmt.Errorf("quickvrp: %w", err)
			}
		}
	}

	a, status := model.SolveWithParameters(opt.SearchParameters{
		FirstSolution: opt.PathCheapestArc,
		TimeLimit:     p.TimeLimit,
	})
	res := Result{Status: status}
	if a == nil {
		return res, nil
	}
	for v := 0; v < vehicles; v++ {
		prev := model.Start(v)
		var route []int
		for idx := a.Next(prev); !model.IsEnd(idx); idx = a.Next(idx) {
			route = append(route, mgr.IndexToNode(idx)-ns)
			res.TotalCost += model.GetArcCostForVehicle(prev, idx, v)
			prev = idx
		}
		if len(route) > 0 {
			res.Routes = append(res.Routes, route)
		}
	}
	return res, nil
}
