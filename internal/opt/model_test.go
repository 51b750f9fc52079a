package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineModel places node i at coordinate pos[i] and uses |dx| as arc cost.
func lineModel(t *testing.T, pos []int64, vehicles int) (*Model, *IndexManager, int) {
	t.Helper()
	mgr, err := NewIndexManager(len(pos), vehicles, 0)
	require.NoError(t, err)
	m := NewModel(mgr)
	cb := m.RegisterTransitCallback(func(from, to int64) int64 {
		d := pos[mgr.IndexToNode(from)] - pos[mgr.IndexToNode(to)]
		if d < 0 {
			d = -d
		}
		return d
	})
	require.NoError(t, m.SetArcCostEvaluatorOfAllVehicles(cb))
	return m, mgr, cb
}

func TestIndexManagerLayout(t *testing.T) {
	mgr, err := NewIndexManager(4, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, mgr.NumIndices())
	for idx, node := range []int{1, 2, 3, 0, 0, 0, 0} {
		assert.Equal(t, node, mgr.IndexToNode(int64(idx)))
	}
	assert.Equal(t, int64(3), mgr.NodeToIndex(0))
	assert.Equal(t, int64(0), mgr.NodeToIndex(1))

	m := NewModel(mgr)
	assert.Equal(t, int64(3), m.Start(0))
	assert.Equal(t, int64(6), m.End(1))
	assert.True(t, m.IsStart(4))
	assert.True(t, m.IsEnd(5))
	assert.False(t, m.IsEnd(2))

	_, err = NewIndexManager(0, 1, 0)
	assert.Error(t, err)
	_, err = NewIndexManagerWithDepots(3, 1, []int{0}, []int{5})
	assert.Error(t, err)
}

func TestSolveLine(t *testing.T) {
	m, _, _ := lineModel(t, []int64{0, 1, 2, 3}, 1)
	a, st := m.Solve()
	require.Equal(t, StatusSuccess, st)
	assert.Equal(t, int64(6), a.ObjectiveValue())
	assert.Len(t, a.Route(0), 3)
	assert.Equal(t, StatusSuccess, m.Status())
}

func TestSolveWithoutArcCostIsInvalid(t *testing.T) {
	mgr, err := NewIndexManager(3, 1, 0)
	require.NoError(t, err)
	m := NewModel(mgr)
	a, st := m.Solve()
	assert.Nil(t, a)
	assert.Equal(t, StatusInvalid, st)
	assert.Equal(t, "invalid model", st.String())
}

func TestCapacitySplitsRoutes(t *testing.T) {
	m, mgr, _ := lineModel(t, []int64{0, 1, 2, 3, 4}, 2)
	demand := m.RegisterUnaryTransitCallback(func(from int64) int64 {
		if mgr.IndexToNode(from) == 0 {
			return 0
		}
		return 1
	})
	_, err := m.AddDimension(demand, 0, 2, true, "load")
	require.NoError(t, err)
	a, st := m.Solve()
	require.Equal(t, StatusSuccess, st)
	total := 0
	for v := 0; v < 2; v++ {
		r := a.Route(v)
		assert.LessOrEqual(t, len(r), 2)
		total += len(r)
	}
	assert.Equal(t, 4, total)
}

func TestTimeWindowsAndFinalizer(t *testing.T) {
	m, mgr, cb := lineModel(t, []int64{0, 1, 2}, 1)
	dim, err := m.AddDimension(cb, 10, 100, false, "Time")
	require.NoError(t, err)
	require.NoError(t, dim.SetCumulRange(mgr.NodeToIndex(1), 5, 10))
	require.NoError(t, m.AddVariableMinimizedByFinalizer(dim, m.Start(0)))
	require.NoError(t, m.AddVariableMinimizedByFinalizer(dim, m.End(0)))

	a, st := m.Solve()
	require.Equal(t, StatusSuccess, st)
	assert.GreaterOrEqual(t, a.CumulMin(dim, mgr.NodeToIndex(1)), int64(5))
	assert.LessOrEqual(t, a.CumulMax(dim, mgr.NodeToIndex(1)), int64(10))
	assert.Equal(t, int64(0), a.CumulMin(dim, m.Start(0)))
	assert.Equal(t, int64(0), a.CumulMax(dim, m.Start(0)))
}

func TestUnreachableWindowFails(t *testing.T) {
	m, mgr, cb := lineModel(t, []int64{0, 1, 2}, 1)
	dim, err := m.AddDimension(cb, 0, 100, true, "Time")
	require.NoError(t, err)
	require.NoError(t, dim.SetCumulRange(mgr.NodeToIndex(2), 0, 1))
	a, st := m.Solve()
	assert.Nil(t, a)
	assert.Equal(t, StatusFail, st)
}

func TestPickupBeforeDelivery(t *testing.T) {
	m, mgr, _ := lineModel(t, []int64{0, 1, 2, 3, 4}, 2)
	p, d := mgr.NodeToIndex(3), mgr.NodeToIndex(1)
	require.NoError(t, m.AddPickupAndDelivery(p, d))
	require.NoError(t, m.AddSameVehicle(p, d))
	a, st := m.SolveWithParameters(SearchParameters{FirstSolution: ParallelCheapestInsertion})
	require.Equal(t, StatusSuccess, st)
	v := a.Vehicle(p)
	require.Equal(t, v, a.Vehicle(d))
	r := a.Route(v)
	pi, di := -1, -1
	for i, idx := range r {
		switch idx {
		case p:
			pi = i
		case d:
			di = i
		}
	}
	assert.Less(t, pi, di)

	assert.Error(t, m.AddPickupAndDelivery(m.Start(0), d))
}

func TestAllowedVehicles(t *testing.T) {
	pos := []int64{0, 1, 2, 10}
	mgr, err := NewIndexManagerWithDepots(4, 2, []int{0, 3}, []int{0, 0})
	require.NoError(t, err)
	m := NewModel(mgr)
	cb := m.RegisterTransitCallback(func(from, to int64) int64 {
		d := pos[mgr.IndexToNode(from)] - pos[mgr.IndexToNode(to)]
		if d < 0 {
			d = -d
		}
		return d
	})
	require.NoError(t, m.SetArcCostEvaluatorOfAllVehicles(cb))
	idx := mgr.NodeToIndex(1)
	require.NoError(t, m.SetAllowedVehicles(idx, []int{1}))
	a, st := m.Solve()
	require.Equal(t, StatusSuccess, st)
	assert.Equal(t, 1, a.Vehicle(idx))
}

func TestSolutionCallbackCanFinish(t *testing.T) {
	m, _, _ := lineModel(t, []int64{0, 5, 1, 4, 2, 3}, 1)
	calls := 0
	m.AddAtSolutionCallback(func() {
		calls++
		assert.Positive(t, m.CostVar())
		m.FinishCurrentSearch()
	})
	_, st := m.Solve()
	require.Equal(t, StatusSuccess, st)
	assert.Equal(t, 1, calls)
}

func TestDimensionValidation(t *testing.T) {
	m, _, cb := lineModel(t, []int64{0, 1}, 2)
	_, err := m.AddDimensionWithVehicleCapacity(cb, 0, []int64{1}, true, "x")
	assert.Error(t, err)
	_, err = m.AddDimension(99, 0, 1, true, "y")
	assert.ErrorIs(t, err, ErrUnknownCallback)
	_, err = m.AddDimension(cb, 0, 1, true, "z")
	require.NoError(t, err)
	_, err = m.AddDimension(cb, 0, 1, true, "z")
	assert.ErrorIs(t, err, ErrDuplicateDim)
	d, ok := m.Dimension("z")
	require.True(t, ok)
	assert.Equal(t, int64(1), d.VehicleCapacity(1))
}
