package instance

import "courierplan/internal/geo"

// TimeWindow is an inclusive range of seconds.
type TimeWindow struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Contains reports whether t lies in the window.
func (w TimeWindow) Contains(t int64) bool { return t >= w.Start && t <= w.End }

// Order is one delivery request as read from the input file.
type Order struct {
	ID           string     `json:"id"`
	Pickup       geo.Point  `json:"pickup"`
	Delivery     geo.Point  `json:"delivery"`
	Items        int64      `json:"order_number_items"`
	Weight       float64    `json:"weight,omitempty"`
	Window       TimeWindow `json:"time_window"`
	PickupWindow TimeWindow `json:"pickup_time_window"`
	BundleID     string     `json:"bundle_id,omitempty"`
}

// OrderSet is a batch of orders plus the optional columns that were present.
type OrderSet struct {
	Orders []Order `json:"orders"`
	// NumCouriers is the fleet size; the loader sets it to the number of input rows.
	NumCouriers      int  `json:"n_couriers"`
	HasWeights       bool `json:"has_weights"`
	HasPickupWindows bool `json:"has_pickup_windows"`
}

// Couriers returns NumCouriers, defaulting to one courier per order.
func (s OrderSet) Couriers() int {
	if s.NumCouriers > 0 {
		return s.NumCouriers
	}
	return len(s.Orders)
}

// PickupOf returns the pickup used for order i: its own when multiPickup is
// set, otherwise the first order's.
func (s OrderSet) PickupOf(i int, multiPickup bool) geo.Point {
	if multiPickup {
		return s.Orders[i].Pickup
	}
	return s.Orders[0].Pickup
}

func (s OrderSet) subset(keep []bool) OrderSet {
	out := s
	out.Orders = make([]Order, 0, len(s.Orders))
	for i, o := range s.Orders {
		if keep[i] {
			out.Orders = append(out.Orders, o)
		}
	}
	return out
}

// bundles groups order positions by non-empty bundle id, in first-seen order.
func bundles(orders []Order) [][]int {
	var out [][]int
	at := map[string]int{}
	for i, o := range orders {
		if o.BundleID == "" {
			continue
		}
		k, ok := at[o.BundleID]
		if !ok {
			k = len(out)
			at[o.BundleID] = k
			out = append(out, nil)
		}
		out[k] = append(out[k], i)
	}
	return out
}
