// Package instance turns raw orders into the immutable routing problem: node
// layout, distance/time/cost matrices, windows, demands and bundles.
package instance

import (
	"errors"
	"fmt"
	"strconv"

	"courierplan/internal/geo"
	"courierplan/internal/params"
)

var ErrMultiPickupDelivery = errors.New("instance: multi-pickup requires the pickup-delivery layout")

// Kind is the node layout of an instance.
type Kind string

const (
	KindDelivery       Kind = "delivery"
	KindPickupDelivery Kind = "pickup-delivery"
)

// Meta describes the request before filtering.
type Meta struct {
	NOrders      int  `json:"n_orders"`
	NMaxCouriers int  `json:"n_max_couriers"`
	Type         Kind `json:"type"`
}

// WeightData is present only when the orders carried weights.
type WeightData struct {
	PerNode    []int64 `json:"weights"`
	Capacities []int64 `json:"courier_weight_capacities"`
}

// PickupDeliveryData pairs pickup node i with delivery node i+n.
type PickupDeliveryData struct {
	Pairs [][2]int `json:"pickups_deliveries"`
}

// Instance is built once per request and never mutated.
type Instance struct {
	Kind           Kind                `json:"-"`
	Meta           Meta                `json:"meta"`
	Locations      []geo.Point         `json:"locations"`
	DistanceMatrix [][]int64           `json:"distance_matrix"`
	TimeMatrix     [][]int64           `json:"time_matrix"`
	CostMatrix     [][]int64           `json:"cost_matrix"`
	TimeWindows    []TimeWindow        `json:"time_windows"`
	Items          []int64             `json:"number_of_items"`
	ItemCapacities []int64             `json:"courier_item_capacities"`
	Weight         *WeightData         `json:"weight,omitempty"`
	PickupDelivery *PickupDeliveryData `json:"pickup_delivery,omitempty"`
	NodeNames      []string            `json:"node_names"`
	NumVehicles    int                 `json:"num_vehicles"`
	Depot          int                 `json:"depot"`
	Bundles        [][]int             `json:"on_the_way_bundles,omitempty"`
	Filter         *FilterStats        `json:"filter,omitempty"`
}

// NumNodes counts the depot and every pickup/delivery node.
func (in *Instance) NumNodes() int { return len(in.Locations) }

// Build filters the orders when enabled and lays them out for p.Mode.
func Build(set OrderSet, p params.Params, metric geo.Metric) (*Instance, error) {
	pd := p.Mode.PickupDelivery()
	if p.MultiPickup && !pd {
		return nil, ErrMultiPickupDelivery
	}
	if metric == nil {
		metric = geo.Haversine
	}
	kind := KindDelivery
	if pd {
		kind = KindPickupDelivery
	}
	in := &Instance{
		Kind:        kind,
		Meta:        Meta{NOrders: len(set.Orders), NMaxCouriers: set.Couriers(), Type: kind},
		NumVehicles: set.Couriers(),
	}
	if len(set.Orders) == 0 {
		return in, nil
	}
	depot := set.Orders[0].Pickup
	kept := set
	if p.FilterInfeasibleOrders {
		var st FilterStats
		kept, st = Filter{Params: p, Metric: metric}.Apply(set)
		in.Filter = &st
	}
	if pd {
		in.layoutPickupDelivery(kept, depot, p, metric)
	} else {
		in.layoutDelivery(kept, depot, p, metric)
	}
	for _, b := range bundles(kept.Orders) {
		nodes := make([]int, len(b))
		for k, i := range b {
			nodes[k] = i + 1
		}
		in.Bundles = append(in.Bundles, nodes)
	}
	return in, nil
}

func orderName(o Order, i int) string {
	if o.ID != "" {
		return o.ID
	}
	return strconv.Itoa(i + 1)
}

func fill(n int, v int64) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// layoutDelivery uses nodes [depot, order_1..order_n].
func (in *Instance) layoutDelivery(set OrderSet, depot geo.Point, p params.Params, metric geo.Metric) {
	n := len(set.Orders)
	in.Locations = append(make([]geo.Point, 0, n+1), depot)
	in.NodeNames = []string{"depot"}
	in.TimeWindows = []TimeWindow{{0, p.MaxTimeDuration}}
	in.Items = []int64{0}
	weights := []float64{0}
	for i, o := range set.Orders {
		in.Locations = append(in.Locations, o.Delivery)
		in.NodeNames = append(in.NodeNames, orderName(o, i))
		in.TimeWindows = append(in.TimeWindows, o.Window)
		in.Items = append(in.Items, o.Items)
		weights = append(weights, o.Weight)
	}
	dist := DistanceMatrix(in.Locations, metric)
	tm := TimeMatrix(dist, p.Speed, float64(p.WaitingTimeAtDelivery), 1)
	in.DistanceMatrix = Round(dist)
	in.TimeMatrix = Round(tm)
	in.CostMatrix = Round(deliveryCost(dist, float64(p.CourierCost)))
	in.setCapacities(set, weights, p)
}

// layoutPickupDelivery uses nodes [depot, P_1..P_n, D_1..D_n].
func (in *Instance) layoutPickupDelivery(set OrderSet, depot geo.Point, p params.Params, metric geo.Metric) {
	n := len(set.Orders)
	in.Locations = append(make([]geo.Point, 0, 2*n+1), depot)
	in.NodeNames = []string{"depot"}
	in.TimeWindows = []TimeWindow{{0, p.MaxTimeDuration}}
	in.PickupDelivery = &PickupDeliveryData{}
	for i, o := range set.Orders {
		in.Locations = append(in.Locations, set.PickupOf(i, p.MultiPickup))
		in.NodeNames = append(in.NodeNames, "P"+orderName(o, i))
		pw := o.PickupWindow
		if !set.HasPickupWindows {
			pw = TimeWindow{0, p.MaxTimeDuration}
		}
		in.TimeWindows = append(in.TimeWindows, pw)
		in.PickupDelivery.Pairs = append(in.PickupDelivery.Pairs, [2]int{i + 1, i + 1 + n})
	}
	for i, o := range set.Orders {
		in.Locations = append(in.Locations, o.Delivery)
		in.NodeNames = append(in.NodeNames, "D"+orderName(o, i))
		in.TimeWindows = append(in.TimeWindows, o.Window)
	}
	in.Items = make([]int64, 2*n+1)
	weights := make([]float64, 2*n+1)
	for i, o := range set.Orders {
		in.Items[i+1] = o.Items
		weights[i+1] = o.Weight
	}
	dist := DistanceMatrix(in.Locations, metric)
	tm := TimeMatrix(dist, p.Speed, float64(p.WaitingTimeAtDelivery), n+1)
	in.DistanceMatrix = Round(dist)
	in.TimeMatrix = Round(tm)
	in.CostMatrix = Round(pickupDeliveryCost(tm, float64(p.CourierCost), n))
	in.setCapacities(set, weights, p)
}

func (in *Instance) setCapacities(set OrderSet, weights []float64, p params.Params) {
	in.ItemCapacities = fill(in.NumVehicles, p.CourierItemCapacity)
	if set.HasWeights {
		in.Weight = &WeightData{
			PerNode:    roundAll(weights),
			Capacities: fill(in.NumVehicles, p.CourierWeightCapacity),
		}
	}
}

// Validate checks the structural invariants of a built instance.
func (in *Instance) Validate() error {
	n := in.NumNodes()
	for name, m := range map[string][][]int64{"distance": in.DistanceMatrix, "time": in.TimeMatrix, "cost": in.CostMatrix} {
		if len(m) != n {
			return fmt.Errorf("instance: %s matrix has %d rows for %d nodes", name, len(m), n)
		}
		for i, row := range m {
			if len(row) != n {
				return fmt.Errorf("instance: %s matrix row %d has %d columns", name, i, len(row))
			}
			if row[0] != 0 || row[i] != 0 {
				return fmt.Errorf("instance: %s matrix row %d must be zero on column 0 and the diagonal", name, i)
			}
		}
	}
	if len(in.TimeWindows) != n || len(in.Items) != n || len(in.NodeNames) != n {
		return fmt.Errorf("instance: per-node arrays must have %d entries", n)
	}
	if len(in.ItemCapacities) != in.NumVehicles {
		return fmt.Errorf("instance: %d item capacities for %d vehicles", len(in.ItemCapacities), in.NumVehicles)
	}
	return nil
}
