package api

import (
	"fmt"
	"math"

	"courierplan/internal/geo"
	"courierplan/internal/instance"
	"courierplan/internal/model"
)

const maxOrdersPerRun = 5000

func validateSolveRequest(req *model.SolveRequest) error {
	if len(req.Orders) == 0 {
		return fmt.Errorf("orders must not be empty")
	}
	if len(req.Orders) > maxOrdersPerRun {
		return fmt.Errorf("at most %d orders per run, got %d", maxOrdersPerRun, len(req.Orders))
	}
	if req.NumCouriers < 0 {
		return fmt.Errorf("nCouriers must be >= 0")
	}
	for i, o := range req.Orders {
		if err := validateOrder(o); err != nil {
			return fmt.Errorf("orders[%d]: %w", i, err)
		}
	}
	return nil
}

func validateOrder(o instance.Order) error {
	if !finite(o.Pickup) || !finite(o.Delivery) {
		return fmt.Errorf("coordinates must be finite")
	}
	if o.Items < 0 {
		return fmt.Errorf("order_number_items must be >= 0")
	}
	if o.Weight < 0 || math.IsNaN(o.Weight) {
		return fmt.Errorf("weight must be >= 0")
	}
	return nil
}

func finite(p geo.Point) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}
