package instance

import (
	"math/rand"
	"strconv"

	"courierplan/internal/geo"
)

// RandomSpec shapes a generated order set.
type RandomSpec struct {
	Orders    int
	MaxDist   float64
	MaxDemand int64
	// TightWindows picks 30 minute delivery slots between 10:00 and 22:00
	// instead of the whole day.
	TightWindows  bool
	PickupWindows bool
}

// RandomOrders scatters one pickup and rs.Orders deliveries over a square of
// side MaxDist/2. Use it with the Euclidean metric.
func RandomOrders(rng *rand.Rand, rs RandomSpec) OrderSet {
	if rs.MaxDist <= 0 {
		rs.MaxDist = 4000
	}
	if rs.MaxDemand <= 0 {
		rs.MaxDemand = 4
	}
	side := rs.MaxDist / 2
	point := func() geo.Point { return geo.Point{X: rng.Float64() * side, Y: rng.Float64() * side} }
	var slots []TimeWindow
	for s := int64(10 * 3600); s < 22*3600; s += 30 * 60 {
		slots = append(slots, TimeWindow{s, s + 30*60})
	}
	day := TimeWindow{0, 24 * 3600}
	pickup := point()
	set := OrderSet{NumCouriers: rs.Orders, HasPickupWindows: rs.PickupWindows}
	for i := 0; i < rs.Orders; i++ {
		o := Order{
			ID:           strconv.Itoa(i + 1),
			Pickup:       pickup,
			Delivery:     point(),
			Items:        1 + rng.Int63n(rs.MaxDemand),
			Window:       day,
			PickupWindow: day,
		}
		if rs.TightWindows {
			o.Window = slots[rng.Intn(len(slots))]
		}
		set.Orders = append(set.Orders, o)
	}
	return set
}
