package quickvrp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierplan/internal/geo"
	"courierplan/internal/opt"
)

func TestCostMatrixOpenRoutes(t *testing.T) {
	p := Problem{
		Starts:            []geo.Point{{X: 0, Y: 0}},
		Visits:            []geo.Point{{X: 3, Y: 4}, {X: 6, Y: 8}},
		Metric:            geo.Euclidean,
		ExtraCostPerVisit: 1,
	}
	m := p.CostMatrix()
	require.Len(t, m, 3)
	assert.Equal(t, []int64{0, 5, 10}, m[0])
	assert.Equal(t, []int64{0, 0, 6}, m[1])
	assert.Equal(t, []int64{0, 6, 0}, m[2])
}

func TestSolveSingleStart(t *testing.T) {
	res, err := Solve(Problem{
		Starts: []geo.Point{{X: 0, Y: 0}},
		Visits: []geo.Point{{X: 30, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}},
		Metric: geo.Euclidean,
	})
	require.NoError(t, err)
	require.Equal(t, opt.StatusSuccess, res.Status)
	require.Len(t, res.Routes, 1)
	assert.Equal(t, []int{1, 2, 0}, res.Routes[0])
	assert.Equal(t, int64(30), res.TotalCost)
}

func TestSolveMultiStart(t *testing.T) {
	a, b := geo.Point{X: 0, Y: 0}, geo.Point{X: 1000, Y: 0}
	res, err := Solve(Problem{
		Starts: []geo.Point{a, b, a},
		Visits: []geo.Point{{X: 10, Y: 0}, {X: 990, Y: 0}, {X: 20, Y: 0}},
		Metric: geo.Euclidean,
	})
	require.NoError(t, err)
	require.Equal(t, opt.StatusSuccess, res.Status)
	seen := map[int]int{}
	for r, route := range res.Routes {
		for _, v := range route {
			seen[v] = r
		}
	}
	require.Len(t, seen, 3)
	assert.Equal(t, seen[0], seen[2])
	assert.NotEqual(t, seen[0], seen[1])
	assert.Equal(t, int64(30), res.TotalCost)
}

func TestSolveEdgeCases(t *testing.T) {
	res, err := Solve(Problem{Starts: []geo.Point{{}}})
	require.NoError(t, err)
	assert.Empty(t, res.Routes)

	_, err = Solve(Problem{
		Starts: []geo.Point{{}, {X: 1}},
		Visits: []geo.Point{{X: 2}, {X: 3}, {X: 4}},
	})
	assert.ErrorIs(t, err, ErrStartCount)
}
