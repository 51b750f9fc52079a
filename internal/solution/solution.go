// Package solution holds the planner's output document: routes with per-stop
// accounting, summary totals, the parameter snapshot and the solver block.
package solution

import (
	"encoding/json"
	"fmt"
	"os"

	"courierplan/internal/geo"
	"courierplan/internal/instance"
	"courierplan/internal/params"
)

// Stop is one visited node. Incremental fields describe the leg from the
// previous stop and are zero on the first stop, except load and weight.
type Stop struct {
	NodeIndex           int       `json:"node_index"`
	Index               int64     `json:"index"`
	NodeName            string    `json:"node_name"`
	Location            geo.Point `json:"location"`
	TimeStart           *int64    `json:"time_start"`
	TimeEnd             *int64    `json:"time_end"`
	TimeWindow          []int64   `json:"time_window"`
	Time                int64     `json:"time"`
	TimeAccumulated     int64     `json:"time_accumulated"`
	Distance            int64     `json:"distance"`
	DistanceAccumulated int64     `json:"distance_accumulated"`
	Cost                int64     `json:"cost"`
	CostAccumulated     int64     `json:"cost_accumulated"`
	Load                int64     `json:"load"`
	LoadAccumulated     int64     `json:"load_accumulated"`
	Weight              int64     `json:"weight"`
	WeightAccumulated   int64     `json:"weight_accumulated"`
}

// Route is the plan of one used vehicle, starting at its depot stop.
type Route struct {
	VehicleID             int      `json:"vehicle_id"`
	CourierItemCapacity   *int64   `json:"courier_item_capacities,omitempty"`
	CourierWeightCapacity *int64   `json:"courier_weight_capacities,omitempty"`
	Stops                 []Stop   `json:"route"`
	NodeIndexRoute        []int    `json:"node_index_route"`
	NodeIndexNames        []string `json:"node_index_names"`
	VehicleFlags          []string `json:"vehicle_flags,omitzero"`
}

// Last returns the final stop of the route.
func (r Route) Last() Stop { return r.Stops[len(r.Stops)-1] }

type Summary struct {
	TotalTime       int64 `json:"total_time"`
	TotalDistance   int64 `json:"total_distance"`
	TotalCost       int64 `json:"total_cost"`
	TotalLoad       int64 `json:"total_load"`
	TotalWeight     int64 `json:"total_weight"`
	NumVehiclesUsed int   `json:"num_vehicles_used"`
}

// SolverInfo is always present, also when nothing else is.
type SolverInfo struct {
	Model      string  `json:"model"`
	Duration   float64 `json:"duration"`
	StatusCode Status  `json:"status_code"`
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
}

// Solution is produced once per solve. Without an assignment only Solver is set.
type Solution struct {
	Routes     []Route               `json:"routes,omitzero"`
	Meta       *instance.Meta        `json:"meta,omitempty"`
	Filter     *instance.FilterStats `json:"filter,omitempty"`
	Summary    *Summary              `json:"summary,omitempty"`
	Parameters *params.Params        `json:"parameters,omitempty"`
	Solver     SolverInfo            `json:"solver"`
}

// Succeeded reports whether the solver returned an assignment.
func (s *Solution) Succeeded() bool { return s.Solver.StatusCode == StatusSuccess && s.Routes != nil }

// Save writes the solution as indented JSON.
func Save(path string, s *Solution) error {
	b, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("encode solution: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write solution: %w", err)
	}
	return nil
}

// Load reads a solution written by Save.
func Load(path string) (*Solution, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read solution: %w", err)
	}
	return Decode(b)
}

// Decode parses a solution document.
func Decode(b []byte) (*Solution, error) {
	var s Solution
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode solution: %w", err)
	}
	return &s, nil
}
