package vrp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierplan/internal/geo"
	"courierplan/internal/instance"
	"courierplan/internal/opt"
	"courierplan/internal/params"
	"courierplan/internal/solution"
)

func testParams(mode params.Mode) params.Params {
	p := params.Default(mode)
	p.MaxDeliveryDistance = 1000
	p.MaxDeliveryTime = 1000
	p.Speed = 1
	p.WaitingTimeAtDelivery = 0
	p.CourierCost = 100
	p.FilterInfeasibleOrders = false
	return p
}

func lineOrders(n int) instance.OrderSet {
	set := instance.OrderSet{}
	for i := 1; i <= n; i++ {
		set.Orders = append(set.Orders, instance.Order{
			ID:           string(rune('a' + i - 1)),
			Delivery:     geo.Point{X: 0, Y: float64(10 * i)},
			Items:        1,
			Window:       instance.TimeWindow{Start: 0, End: 10000},
			PickupWindow: instance.TimeWindow{Start: 0, End: 10000},
		})
	}
	return set
}

func build(t *testing.T, set instance.OrderSet, p params.Params) *instance.Instance {
	t.Helper()
	in, err := instance.Build(set, p, geo.Euclidean)
	require.NoError(t, err)
	return in
}

func TestDistanceModeVisitsEveryOrder(t *testing.T) {
	p := testParams(params.ModeDistance)
	in := build(t, lineOrders(3), p)

	sol, err := Solve(in, p, Options{})
	require.NoError(t, err)
	require.Equal(t, solution.StatusSuccess, sol.Solver.StatusCode)
	assert.Equal(t, "success", sol.Solver.Status)
	assert.Equal(t, "distance", sol.Solver.Model)

	seen := map[int]bool{}
	var legs int64
	for _, r := range sol.Routes {
		assert.Equal(t, 0, r.NodeIndexRoute[0])
		for k, node := range r.NodeIndexRoute {
			if node != 0 {
				seen[node] = true
			}
			if k > 0 {
				legs += in.DistanceMatrix[r.NodeIndexRoute[k-1]][node]
			}
		}
	}
	assert.Len(t, seen, 3)
	assert.Equal(t, legs, sol.Summary.TotalDistance)
	assert.Equal(t, int64(30), sol.Summary.TotalDistance)
	assert.Equal(t, 1, sol.Summary.NumVehiclesUsed)
	assert.True(t, solution.Verify(sol).OK)
}

func TestLiveModePicksUpBeforeDelivering(t *testing.T) {
	p := testParams(params.ModeLive)
	in := build(t, lineOrders(2), p)

	m, err := NewModel(in, p, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"distance", "time", "capacity", "scheduled", "live"}, m.StepNames())

	sol, err := m.Solve()
	require.NoError(t, err)
	require.Equal(t, solution.StatusSuccess, sol.Solver.StatusCode)
	assert.Equal(t, Solved, m.State())

	visited := 0
	for _, pair := range in.PickupDelivery.Pairs {
		for _, r := range sol.Routes {
			pi, di := -1, -1
			for k, node := range r.NodeIndexRoute {
				switch node {
				case pair[0]:
					pi = k
				case pair[1]:
					di = k
				}
			}
			if pi < 0 && di < 0 {
				continue
			}
			require.GreaterOrEqual(t, pi, 0, "pickup %d on another route", pair[0])
			assert.Less(t, pi, di)
			visited++
		}
	}
	assert.Equal(t, 2, visited)
	for _, r := range sol.Routes {
		for _, s := range r.Stops {
			require.NotNil(t, s.TimeStart)
			assert.GreaterOrEqual(t, *s.TimeStart, s.TimeWindow[0])
		}
	}
}

func TestLiveModeWithoutPickupWindows(t *testing.T) {
	p := testParams(params.ModeLive)
	set := instance.OrderSet{Orders: []instance.Order{{
		ID:       "late",
		Delivery: geo.Point{X: 100, Y: 0},
		Items:    1,
		Window:   instance.TimeWindow{Start: 36000, End: 37800},
	}}}
	in := build(t, set, p)

	sol, err := Solve(in, p, Options{})
	require.NoError(t, err)
	require.Equal(t, solution.StatusSuccess, sol.Solver.StatusCode, sol.Solver.Status)
	require.Len(t, sol.Routes, 1)
	assert.Equal(t, []int{0, 1, 2}, sol.Routes[0].NodeIndexRoute)
	assert.True(t, solution.Verify(sol).OK)
}

func TestTimeBudgetTooSmall(t *testing.T) {
	p := testParams(params.ModeScheduled)
	in := build(t, lineOrders(50), p)

	m, err := NewModel(in, p, Options{})
	require.NoError(t, err)
	require.NoError(t, m.Build())
	a, st, err := m.search(opt.SearchParameters{FirstSolution: m.Strategy(), TimeLimit: time.Nanosecond})
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.Equal(t, solution.StatusTimeout, st)

	sol := m.finish(a, st, err, time.Nanosecond)
	assert.Equal(t, "time-out without solution", sol.Solver.Status)
	assert.Nil(t, sol.Routes)
	assert.Nil(t, sol.Summary)
	assert.False(t, sol.Succeeded())
	assert.Equal(t, SolveFailed, m.State())
}

func TestInfeasibleWindowReturnsSolverBlockOnly(t *testing.T) {
	p := testParams(params.ModeScheduled)
	set := instance.OrderSet{Orders: []instance.Order{{
		ID:       "far",
		Delivery: geo.Point{X: 500, Y: 0},
		Items:    1,
		Window:   instance.TimeWindow{Start: 0, End: 1},
	}}}
	in := build(t, set, p)

	m, err := NewModel(in, p, Options{})
	require.NoError(t, err)
	sol, err := m.Solve()
	require.NoError(t, err)
	assert.Contains(t, []solution.Status{solution.StatusNoSolution, solution.StatusTimeout}, sol.Solver.StatusCode)
	assert.Nil(t, sol.Routes)
	assert.Nil(t, sol.Summary)
	assert.Nil(t, sol.Parameters)
	assert.False(t, sol.Succeeded())
	assert.Equal(t, SolveFailed, m.State())
}

func TestEmptyInstanceHasNoData(t *testing.T) {
	p := testParams(params.ModeScheduled)
	in := build(t, instance.OrderSet{}, p)

	m, err := NewModel(in, p, Options{})
	require.NoError(t, err)
	sol, err := m.Solve()
	require.NoError(t, err)
	assert.Equal(t, solution.StatusNoData, sol.Solver.Status)
	assert.Nil(t, sol.Routes)
	assert.Equal(t, Unbuilt, m.State())
}

func TestQuickModeHasNoRoutingModel(t *testing.T) {
	_, err := NewModel(&instance.Instance{}, params.Default(params.ModeQuick), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestManagerIsCreatedOnce(t *testing.T) {
	p := testParams(params.ModeDistance)
	m, err := NewModel(build(t, lineOrders(2), p), p, Options{})
	require.NoError(t, err)
	require.NoError(t, m.CreateManager())
	assert.ErrorIs(t, m.CreateManager(), ErrManagerExists)
}

func TestBindArcCostRequiresManager(t *testing.T) {
	p := testParams(params.ModeDistance)
	m, err := NewModel(build(t, lineOrders(2), p), p, Options{})
	require.NoError(t, err)
	assert.ErrorIs(t, m.BindArcCost(0), ErrState)
	_, err = m.RegisterTransitCallback(FieldDistance)
	assert.ErrorIs(t, err, ErrState)
}

func TestWeightsFieldMissingWithoutWeights(t *testing.T) {
	p := testParams(params.ModeNoTW)
	m, err := NewModel(build(t, lineOrders(2), p), p, Options{})
	require.NoError(t, err)
	require.NoError(t, m.CreateManager())
	_, err = m.RegisterUnaryCallback(FieldWeights)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestProgressIsReported(t *testing.T) {
	p := testParams(params.ModeNoTW)
	in := build(t, lineOrders(3), p)
	var seen []Progress
	sol, err := Solve(in, p, Options{OnProgress: func(pr Progress) { seen = append(seen, pr) }})
	require.NoError(t, err)
	require.True(t, sol.Succeeded())
	require.NotEmpty(t, seen)
	last := seen[len(seen)-1]
	assert.Equal(t, len(seen)-1, last.Index)
	assert.LessOrEqual(t, last.Best, seen[0].Objective)
}

func TestObserverStopsAfterPatience(t *testing.T) {
	o := NewProgressObserver(2)
	assert.False(t, o.OnCandidate(10).Stopped)
	assert.False(t, o.OnCandidate(12).Stopped)
	assert.False(t, o.OnCandidate(12).Stopped)
	pr := o.OnCandidate(11)
	assert.True(t, pr.Stopped)
	assert.Equal(t, 3, pr.Stagnant)
	assert.Equal(t, int64(10), o.Best())
}

func TestObserverResetsOnEqualBest(t *testing.T) {
	o := NewProgressObserver(1)
	o.OnCandidate(10)
	o.OnCandidate(11)
	pr := o.OnCandidate(10)
	assert.Equal(t, 0, pr.Stagnant)
	assert.False(t, pr.Stopped)
}

func TestStepsPerMode(t *testing.T) {
	cases := map[params.Mode]int{
		params.ModeDistance:  1,
		params.ModeTime:      2,
		params.ModeNoTW:      3,
		params.ModeScheduled: 4,
		params.ModeLive:      5,
	}
	for mode, n := range cases {
		steps, _, err := StepsFor(mode)
		require.NoError(t, err, mode.String())
		assert.Len(t, steps, n, mode.String())
	}
}
