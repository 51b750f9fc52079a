// Package params defines the planner's VRP parameters and their load-time validation.
package params

import (
	"encoding/json"
	"fmt"
	"time"
)

// Params are the knobs of a single planning run. The JSON tags are also the
// parameter snapshot written into every solution.
type Params struct {
	Mode                    Mode                `json:"model_type"`
	MaxTimeDuration         int64               `json:"max_time_duration"`
	AllowedWaitingTimeAtDel int64               `json:"allowed_waiting_time_at_del"`
	MaxDeliveryTime         int64               `json:"max_delivery_time"`
	MaxDeliveryDistance     int64               `json:"max_delivery_distance"`
	WaitingTimeAtDelivery   int64               `json:"waiting_time_at_delivery"`
	Speed                   float64             `json:"speed"`
	CourierItemCapacity     int64               `json:"courier_item_capacity"`
	CourierWeightCapacity   int64               `json:"courier_weight_capacity"`
	CourierCost             int64               `json:"courier_cost"`
	MaxCalcTime             int64               `json:"max_calc_time"`
	TrackSolverProgress     bool                `json:"track_solver_progress"`
	VehicleConstraints      *VehicleConstraints `json:"vehicle_constraints"`
	FilterInfeasibleOrders  bool                `json:"filter_infeasible_orders"`
	MultiPickup             bool                `json:"multi_pickup"`
}

// Default returns the stock parameters for a mode.
func Default(mode Mode) Params {
	return Params{
		Mode:                    mode,
		MaxTimeDuration:         24 * 3600,
		AllowedWaitingTimeAtDel: 10 * 60,
		MaxDeliveryTime:         60 * 60,
		MaxDeliveryDistance:     5000,
		WaitingTimeAtDelivery:   60,
		Speed:                   3,
		CourierItemCapacity:     5,
		CourierWeightCapacity:   5,
		CourierCost:             5000,
		MaxCalcTime:             10,
		FilterInfeasibleOrders:  true,
	}
}

// TimeLimit is the solve budget; zero means unlimited.
func (p Params) TimeLimit() time.Duration {
	if p.MaxCalcTime <= 0 {
		return 0
	}
	return time.Duration(p.MaxCalcTime) * time.Second
}

// Validate checks value ranges the matrix builder and solver rely on.
func (p Params) Validate() error {
	switch {
	case !p.Mode.Valid():
		return &ConfigError{Field: "model_type", Err: fmt.Errorf("%w: %d", ErrUnknownMode, int(p.Mode))}
	case p.Speed <= 0:
		return &ConfigError{Field: "speed", Err: fmt.Errorf("must be > 0, got %v", p.Speed)}
	case p.MaxTimeDuration < 0:
		return &ConfigError{Field: "max_time_duration", Err: fmt.Errorf("must be >= 0")}
	case p.MaxDeliveryTime < 0:
		return &ConfigError{Field: "max_delivery_time", Err: fmt.Errorf("must be >= 0")}
	case p.MaxDeliveryDistance < 0:
		return &ConfigError{Field: "max_delivery_distance", Err: fmt.Errorf("must be >= 0")}
	case p.WaitingTimeAtDelivery < 0 || p.AllowedWaitingTimeAtDel < 0:
		return &ConfigError{Field: "waiting_time", Err: fmt.Errorf("waiting times must be >= 0")}
	case p.CourierItemCapacity < 0 || p.CourierWeightCapacity < 0:
		return &ConfigError{Field: "courier_capacity", Err: fmt.Errorf("capacities must be >= 0")}
	}
	return nil
}

// String renders the parameters as indented JSON.
func (p Params) String() string {
	b, err := json.MarshalIndent(p, "", "    ")
	if err != nil {
		type plain Params
		return fmt.Sprintf("%+v", plain(p))
	}
	return string(b)
}
