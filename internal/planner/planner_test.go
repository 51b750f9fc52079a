package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierplan/internal/geo"
	"courierplan/internal/instance"
	"courierplan/internal/params"
	"courierplan/internal/solution"
)

func orders(points ...geo.Point) instance.OrderSet {
	set := instance.OrderSet{}
	for i, pt := range points {
		set.Orders = append(set.Orders, instance.Order{
			ID:       string(rune('a' + i)),
			Delivery: pt,
			Items:    1,
			Window:   instance.TimeWindow{Start: 0, End: 100000},
		})
	}
	return set
}

func TestPlanDistanceMode(t *testing.T) {
	p := params.Default(params.ModeDistance)
	p.Speed = 1
	p.MaxDeliveryDistance = 1000
	p.FilterInfeasibleOrders = false

	res, err := Plan(context.Background(), Request{
		Orders: orders(geo.Point{Y: 10}, geo.Point{Y: 20}),
		Params: p,
		Metric: geo.Euclidean,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Solution)
	assert.Nil(t, res.Quick)
	assert.Equal(t, solution.StatusSuccess, res.Solution.Solver.StatusCode)
	assert.Equal(t, "success", res.Status())
	assert.Equal(t, int64(20), res.Solution.Summary.TotalDistance)
}

func TestPlanFiltersFarOrders(t *testing.T) {
	p := params.Default(params.ModeDistance)
	p.Speed = 1
	p.MaxDeliveryDistance = 100

	res, err := Plan(context.Background(), Request{
		Orders: orders(geo.Point{Y: 10}, geo.Point{Y: 5000}),
		Params: p,
		Metric: geo.Euclidean,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Solution.Filter)
	assert.Equal(t, 1, res.Solution.Filter.NFiltered)
	assert.Equal(t, 1, res.Solution.Filter.DistanceInfeasible)
}

func TestPlanQuickSharedPickup(t *testing.T) {
	p := params.Default(params.ModeQuick)
	res, err := Plan(context.Background(), Request{
		Orders: orders(geo.Point{X: 30}, geo.Point{X: 10}, geo.Point{X: 20}),
		Params: p,
		Metric: geo.Euclidean,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Solution)
	require.NotNil(t, res.Quick)
	assert.Equal(t, "success", res.Status())
	assert.Equal(t, [][]int{{1, 2, 0}}, res.Quick.Routes)
	assert.Equal(t, int64(30), res.Quick.TotalCost)
}

func TestQuickOwnPickups(t *testing.T) {
	set := orders(geo.Point{X: 10}, geo.Point{X: 990})
	set.Orders[1].Pickup = geo.Point{X: 1000}

	res, err := Quick(context.Background(), set, params.Default(params.ModeQuick), geo.Euclidean)
	require.NoError(t, err)
	assert.Len(t, res.Routes, 2)
	assert.Equal(t, int64(20), res.TotalCost)
}

func TestQuickWithoutOrders(t *testing.T) {
	_, err := Quick(context.Background(), instance.OrderSet{}, params.Default(params.ModeQuick), geo.Euclidean)
	assert.ErrorIs(t, err, ErrNoOrders)
}

func TestPlanRejectsBadParams(t *testing.T) {
	p := params.Default(params.ModeScheduled)
	p.Speed = 0
	_, err := Plan(context.Background(), Request{Orders: orders(geo.Point{X: 1}), Params: p})
	var ce *params.ConfigError
	assert.ErrorAs(t, err, &ce)
}
