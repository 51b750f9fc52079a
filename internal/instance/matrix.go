package instance

import (
	"math"

	"courierplan/internal/geo"
)

// DistanceMatrix measures every ordered pair of locations. Travel into node 0
// is free: routes are open and never return to the depot.
func DistanceMatrix(locs []geo.Point, metric geo.Metric) [][]float64 {
	n := len(locs)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := metric(locs[i], locs[j])
			if j != 0 {
				out[i][j] = d
			}
			if i != 0 {
				out[j][i] = d
			}
		}
	}
	return out
}

// TimeMatrix converts distances into travel plus service time. Columns below
// pickupCols are pickups and carry no service time.
func TimeMatrix(dist [][]float64, speed, wait float64, pickupCols int) [][]float64 {
	out := make([][]float64, len(dist))
	for i, row := range dist {
		out[i] = make([]float64, len(row))
		for j, d := range row {
			switch {
			case i == j, j == 0:
			case j < pickupCols:
				out[i][j] = d / speed
			default:
				out[i][j] = wait + d/speed
			}
		}
	}
	return out
}

// Round finalizes a matrix to integers, rounding half to even.
func Round(m [][]float64) [][]int64 {
	out := make([][]int64, len(m))
	for i, row := range m {
		out[i] = make([]int64, len(row))
		for j, v := range row {
			out[i][j] = int64(math.RoundToEven(v))
		}
	}
	return out
}

func roundAll(v []float64) []int64 {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = int64(math.RoundToEven(x))
	}
	return out
}

// deliveryCost charges courierCost on every departure from the depot.
func deliveryCost(dist [][]float64, courierCost float64) [][]float64 {
	out := cloneMatrix(dist)
	if len(out) == 0 {
		return out
	}
	for j := range out[0] {
		out[0][j] += courierCost
	}
	out[0][0] = 0
	return out
}

// pickupDeliveryCost is the time matrix with courierCost on depot-to-pickup arcs.
func pickupDeliveryCost(tm [][]float64, courierCost float64, n int) [][]float64 {
	out := cloneMatrix(tm)
	for j := 1; j <= n && j < len(out); j++ {
		out[0][j] += courierCost
	}
	if len(out) > 0 {
		out[0][0] = 0
	}
	return out
}

func cloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
