package instance

import (
	"log"
	"time"

	"courierplan/internal/geo"
	"courierplan/internal/opt"
	"courierplan/internal/params"
	"courierplan/internal/quickvrp"
)

// DefaultBundleTimeLimit bounds each bundle's sequencing run.
const DefaultBundleTimeLimit = 10 * time.Second

// FilterStats counts the orders rejected by each check. An order failing
// several checks is counted under each of them but only once in NFiltered.
type FilterStats struct {
	DistanceInfeasible       int `json:"distance_infeasible"`
	TimeInfeasible           int `json:"time_infeasible"`
	ItemCapacityInfeasible   int `json:"item_capacity_infeasible"`
	WeightCapacityInfeasible int `json:"weight_capacity_infeasible"`
	InconsistentTimeWindows  int `json:"inconsistent_time_windows"`
	TimeWindowInfeasible     int `json:"time_window_infeasible"`
	InfeasibleExistingBundle int `json:"infeasible_existing_bundle"`
	NFiltered                int `json:"n_filtered"`
}

// Filter drops orders that no single courier could serve, alone or together
// with the rest of their bundle.
type Filter struct {
	Params          params.Params
	Metric          geo.Metric
	BundleTimeLimit time.Duration
}

// Apply returns the kept orders in input order together with the rejection counts.
func (f Filter) Apply(set OrderSet) (OrderSet, FilterStats) {
	var st FilterStats
	if len(set.Orders) == 0 {
		return set, st
	}
	if f.Metric == nil {
		f.Metric = geo.Haversine
	}
	p := f.Params
	wait := float64(p.WaitingTimeAtDelivery)
	// pickup windows only constrain the pickup-delivery layout
	pickupWindows := set.HasPickupWindows && p.Mode.PickupDelivery()
	pass := make([]bool, len(set.Orders))
	for i, o := range set.Orders {
		ok := true
		dist := f.Metric(set.PickupOf(i, p.MultiPickup), o.Delivery)
		if dist > float64(p.MaxDeliveryDistance) {
			st.DistanceInfeasible++
			ok = false
		}
		duration := wait + dist/p.Speed
		if duration > float64(p.MaxDeliveryTime) {
			st.TimeInfeasible++
			ok = false
		}
		if o.Items > p.CourierItemCapacity {
			st.ItemCapacityInfeasible++
			ok = false
		}
		if set.HasWeights && o.Weight > float64(p.CourierWeightCapacity) {
			st.WeightCapacityInfeasible++
			ok = false
		}
		if pickupWindows {
			dw, pw := o.Window, o.PickupWindow
			if dw.Start > pw.End {
				st.InconsistentTimeWindows++
				ok = false
			}
			if float64(dw.Start-pw.End) > duration || duration > float64(dw.End-pw.Start) {
				st.TimeWindowInfeasible++
				ok = false
			}
		}
		pass[i] = ok
	}

	for _, b := range bundles(set.Orders) {
		if f.bundleFits(set, b) {
			continue
		}
		st.InfeasibleExistingBundle++
		for _, i := range b {
			pass[i] = false
		}
	}

	for i, ok := range pass {
		if !ok {
			st.NFiltered++
			if o := set.Orders[i]; o.ID != "" {
				log.Printf("[filter] dropped order id=%s", o.ID)
			}
		}
	}
	return set.subset(pass), st
}

// bundleFits sequences the bundle's deliveries and checks the joint totals.
func (f Filter) bundleFits(set OrderSet, b []int) bool {
	p := f.Params
	prob := quickvrp.Problem{Metric: f.Metric, TimeLimit: f.BundleTimeLimit}
	if prob.TimeLimit == 0 {
		prob.TimeLimit = DefaultBundleTimeLimit
	}
	var items int64
	var weight float64
	for _, i := range b {
		o := set.Orders[i]
		prob.Visits = append(prob.Visits, o.Delivery)
		if p.MultiPickup {
			prob.Starts = append(prob.Starts, o.Pickup)
		}
		items += o.Items
		weight += o.Weight
	}
	if !p.MultiPickup {
		prob.Starts = []geo.Point{set.Orders[0].Pickup}
	}
	res, err := quickvrp.Solve(prob)
	if err != nil || res.Status != opt.StatusSuccess {
		log.Printf("[filter] bundle sequencing failed size=%d status=%q err=%v", len(b), res.Status, err)
		return false
	}
	distance := float64(res.TotalCost)
	duration := distance / p.Speed
	for _, r := range res.Routes {
		duration += float64(p.WaitingTimeAtDelivery) * float64(len(r)-1)
	}
	switch {
	case distance > float64(p.MaxDeliveryDistance),
		duration > float64(p.MaxDeliveryTime),
		items > p.CourierItemCapacity,
		set.HasWeights && weight > float64(p.CourierWeightCapacity):
		return false
	}
	return true
}

// Counts returns the per-reason drop counts keyed like the JSON fields.
func (s FilterStats) Counts() map[string]int {
	return map[string]int{
		"distance_infeasible":        s.DistanceInfeasible,
		"time_infeasible":            s.TimeInfeasible,
		"item_capacity_infeasible":   s.ItemCapacityInfeasible,
		"weight_capacity_infeasible": s.WeightCapacityInfeasible,
		"inconsistent_time_windows":  s.InconsistentTimeWindows,
		"time_window_infeasible":     s.TimeWindowInfeasible,
		"infeasible_existing_bundle": s.InfeasibleExistingBundle,
	}
}
