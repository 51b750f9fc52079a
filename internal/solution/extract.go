package solution

import (
	"courierplan/internal/instance"
	"courierplan/internal/params"
)

// RouteSource is a solved assignment seen through the routing model.
type RouteSource interface {
	Vehicles() int
	Start(vehicle int) int64
	IsEnd(index int64) bool
	Next(index int64) int64
	Node(index int64) int
	// TimeBounds returns the feasible arrival range; ok is false without a time dimension.
	TimeBounds(index int64) (lo, hi int64, ok bool)
	// ArcCost is the bound arc-cost callback's value for the leg.
	ArcCost(from, to int64, vehicle int) int64
}

// Extract walks every used vehicle's chain of next hops and accumulates the
// per-stop accounting. The solver block is left to the caller.
func Extract(src RouteSource, in *instance.Instance, p params.Params) *Solution {
	sol := &Solution{
		Routes:     []Route{},
		Meta:       &in.Meta,
		Filter:     in.Filter,
		Summary:    &Summary{},
		Parameters: &p,
	}
	for v := 0; v < src.Vehicles(); v++ {
		start := src.Start(v)
		if src.IsEnd(src.Next(start)) {
			continue
		}
		r := extractRoute(src, in, v)
		if p.VehicleConstraints != nil {
			r.VehicleFlags = flagRoute(r, p.VehicleConstraints)
		}
		last := r.Last()
		sol.Summary.TotalTime += last.TimeAccumulated
		sol.Summary.TotalDistance += last.DistanceAccumulated
		sol.Summary.TotalCost += last.CostAccumulated
		sol.Summary.TotalLoad += last.LoadAccumulated
		sol.Summary.TotalWeight += last.WeightAccumulated
		sol.Summary.NumVehiclesUsed++
		sol.Routes = append(sol.Routes, r)
	}
	return sol
}

func extractRoute(src RouteSource, in *instance.Instance, v int) Route {
	r := Route{VehicleID: v}
	if v < len(in.ItemCapacities) {
		c := in.ItemCapacities[v]
		r.CourierItemCapacity = &c
	}
	if in.Weight != nil && v < len(in.Weight.Capacities) {
		c := in.Weight.Capacities[v]
		r.CourierWeightCapacity = &c
	}
	var acc Stop
	prevIndex, prevNode := int64(-1), -1
	for index := src.Start(v); !src.IsEnd(index); index = src.Next(index) {
		node := src.Node(index)
		s := Stop{
			NodeIndex:  node,
			Index:      index,
			NodeName:   in.NodeNames[node],
			Location:   in.Locations[node],
			TimeWindow: []int64{},
			Load:       in.Items[node],
		}
		if in.Weight != nil {
			s.Weight = in.Weight.PerNode[node]
		}
		if lo, hi, ok := src.TimeBounds(index); ok {
			s.TimeStart, s.TimeEnd = &lo, &hi
		}
		if node < len(in.TimeWindows) {
			w := in.TimeWindows[node]
			s.TimeWindow = []int64{w.Start, w.End}
		}
		if prevIndex >= 0 {
			s.Time = in.TimeMatrix[prevNode][node]
			s.Distance = in.DistanceMatrix[prevNode][node]
			s.Cost = src.ArcCost(prevIndex, index, v)
		}
		acc.TimeAccumulated += s.Time
		acc.DistanceAccumulated += s.Distance
		acc.CostAccumulated += s.Cost
		acc.LoadAccumulated += s.Load
		acc.WeightAccumulated += s.Weight
		s.TimeAccumulated = acc.TimeAccumulated
		s.DistanceAccumulated = acc.DistanceAccumulated
		s.CostAccumulated = acc.CostAccumulated
		s.LoadAccumulated = acc.LoadAccumulated
		s.WeightAccumulated = acc.WeightAccumulated

		r.Stops = append(r.Stops, s)
		r.NodeIndexRoute = append(r.NodeIndexRoute, node)
		r.NodeIndexNames = append(r.NodeIndexNames, s.NodeName)
		prevIndex, prevNode = index, node
	}
	return r
}

// flagRoute names every vehicle class whose limits cover the route's peak
// cumulative load and weight.
func flagRoute(r Route, vc *params.VehicleConstraints) []string {
	var load, weight int64
	for _, s := range r.Stops {
		load = max(load, s.LoadAccumulated)
		weight = max(weight, s.WeightAccumulated)
	}
	return vc.ClassesFor(load, weight)
}
