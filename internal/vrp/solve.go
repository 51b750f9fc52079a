package vrp

import (
	"fmt"
	"log"
	"time"

	"courierplan/internal/instance"
	"courierplan/internal/metrics"
	"courierplan/internal/opt"
	"courierplan/internal/params"
	"courierplan/internal/solution"
)

// Solve builds and solves a model for in in one call.
func Solve(in *instance.Instance, p params.Params, opts Options) (*solution.Solution, error) {
	m, err := NewModel(in, p, opts)
	if err != nil {
		return nil, err
	}
	return m.Solve()
}

// Solve builds the model if needed and runs the search once. Instances with
// at most one node short-circuit to a "no data" result without touching the
// solver. Solver panics are reported as the exception status.
func (m *Model) Solve() (*solution.Solution, error) {
	name := m.params.Mode.String()
	if m.in.NumNodes() <= 1 {
		return &solution.Solution{Solver: solution.SolverInfo{
			Model:  name,
			Status: solution.StatusNoData,
			Error:  solution.StatusNoData,
		}}, nil
	}
	if m.state == Unbuilt {
		if err := m.Build(); err != nil {
			m.state = SolveFailed
			log.Printf("[solver] model=%s build failed: %v", name, err)
			return m.finish(nil, solution.StatusInvalidModel, err, 0), nil
		}
	}
	if m.state != ArcCostBound {
		return nil, fmt.Errorf("%w: solve in state %s", ErrState, m.state)
	}

	sp := opt.SearchParameters{FirstSolution: m.strategy, TimeLimit: m.params.TimeLimit()}
	log.Printf("[solver] model=%s nodes=%d vehicles=%d strategy=%s limit=%s", name, m.in.NumNodes(), m.in.NumVehicles, sp.FirstSolution, sp.TimeLimit)
	start := time.Now()
	a, status, err := m.search(sp)
	sol := m.finish(a, status, err, time.Since(start))
	log.Printf("[solver] model=%s status=%q duration=%.2fs", name, sol.Solver.Status, sol.Solver.Duration)
	return sol, nil
}

func (m *Model) search(sp opt.SearchParameters) (a *opt.Assignment, st solution.Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			a, st, err = nil, solution.StatusException, fmt.Errorf("solver panic: %v", r)
		}
	}()
	a, s := m.routing.SolveWithParameters(sp)
	return a, solution.Status(s), nil
}

func (m *Model) finish(a *opt.Assignment, st solution.Status, err error, dur time.Duration) *solution.Solution {
	name := m.params.Mode.String()
	sol := &solution.Solution{}
	if a != nil && st == solution.StatusSuccess {
		sol = solution.Extract(m.view(a), m.in, m.params)
		m.state = Solved
	} else {
		m.state = SolveFailed
	}
	sol.Solver = solution.SolverInfo{
		Model:      name,
		Duration:   dur.Seconds(),
		StatusCode: st,
		Status:     st.String(),
	}
	if err != nil {
		sol.Solver.Error = err.Error()
	}
	metrics.Solves.WithLabelValues(name, st.String()).Inc()
	metrics.SolveDuration.WithLabelValues(name).Observe(dur.Seconds())
	if m.observer != nil && m.observer.stopped {
		metrics.EarlyStops.WithLabelValues(name).Inc()
	}
	return sol
}

// view exposes an assignment to the extractor.
func (m *Model) view(a *opt.Assignment) solution.RouteSource {
	v := assignmentView{m: m, a: a}
	if m.params.Mode != params.ModeDistance {
		v.time, _ = m.routing.Dimension("Time")
	}
	return v
}

type assignmentView struct {
	m    *Model
	a    *opt.Assignment
	time *opt.Dimension
}

func (v assignmentView) Vehicles() int           { return v.m.routing.Vehicles() }
func (v assignmentView) Start(vehicle int) int64 { return v.m.routing.Start(vehicle) }
func (v assignmentView) IsEnd(index int64) bool  { return v.m.routing.IsEnd(index) }
func (v assignmentView) Next(index int64) int64  { return v.a.Next(index) }
func (v assignmentView) Node(index int64) int    { return v.m.mgr.IndexToNode(index) }

func (v assignmentView) TimeBounds(index int64) (int64, int64, bool) {
	if v.time == nil {
		return 0, 0, false
	}
	return v.a.CumulMin(v.time, index), v.a.CumulMax(v.time, index), true
}

func (v assignmentView) ArcCost(from, to int64, vehicle int) int64 {
	return v.m.routing.GetArcCostForVehicle(from, to, vehicle)
}
