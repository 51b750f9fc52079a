package solution

import (
	"fmt"
	"strings"
)

// Violation is one broken constraint.
type Violation struct {
	VehicleID int    `json:"vehicle_id"`
	NodeName  string `json:"node_name,omitempty"`
	NodeIndex int    `json:"node_index"`
	Field     string `json:"field"`
	Limit     string `json:"limit"`
	Value     int64  `json:"value"`
	Bound     int64  `json:"bound"`
}

func (v Violation) String() string {
	if v.Field == "status_code" {
		return fmt.Sprintf("solver status %d is not success", v.Value)
	}
	return fmt.Sprintf("vehicle %d node %s (nd_idx=%d): %s=%d exceeds %s=%d",
		v.VehicleID, v.NodeName, v.NodeIndex, v.Field, v.Value, v.Limit, v.Bound)
}

// Report lists every violation found; OK when there are none.
type Report struct {
	OK         bool        `json:"ok"`
	Violations []Violation `json:"violations"`
}

func (r Report) String() string {
	if r.OK {
		return "results comply with the constraints"
	}
	lines := make([]string, 0, len(r.Violations)+1)
	lines = append(lines, "some results do NOT comply with the constraints:")
	for _, v := range r.Violations {
		lines = append(lines, "  "+v.String())
	}
	return strings.Join(lines, "\n")
}

// Verify re-checks a solution against its own parameter snapshot. It never
// stops at the first problem.
func Verify(s *Solution) Report {
	rep := Report{Violations: []Violation{}}
	if s.Solver.StatusCode != StatusSuccess {
		rep.Violations = append(rep.Violations, Violation{VehicleID: -1, NodeIndex: -1, Field: "status_code", Limit: "success", Value: int64(s.Solver.StatusCode), Bound: int64(StatusSuccess)})
	}
	if s.Parameters != nil {
		p := s.Parameters
		for _, r := range s.Routes {
			for _, st := range r.Stops {
				check := func(field string, value int64, limit string, bound int64) {
					if value > bound {
						rep.Violations = append(rep.Violations, Violation{
							VehicleID: r.VehicleID, NodeName: st.NodeName, NodeIndex: st.NodeIndex,
							Field: field, Limit: limit, Value: value, Bound: bound,
						})
					}
				}
				window := func(field string, t *int64) {
					if t == nil || len(st.TimeWindow) < 2 {
						return
					}
					if *t < st.TimeWindow[0] {
						rep.Violations = append(rep.Violations, Violation{
							VehicleID: r.VehicleID, NodeName: st.NodeName, NodeIndex: st.NodeIndex,
							Field: field, Limit: "time_window_start", Value: *t, Bound: st.TimeWindow[0],
						})
					}
					check(field, *t, "time_window_end", st.TimeWindow[1])
				}
				window("time_start", st.TimeStart)
				window("time_end", st.TimeEnd)
				check("time_accumulated", st.TimeAccumulated, "max_time_duration", p.MaxTimeDuration)
				if st.TimeStart != nil {
					check("time_start", *st.TimeStart, "max_time_duration", p.MaxTimeDuration)
				}
				if st.TimeEnd != nil {
					check("time_end", *st.TimeEnd, "max_time_duration", p.MaxTimeDuration)
				}
				check("time_accumulated", st.TimeAccumulated, "max_delivery_time", p.MaxDeliveryTime)
				check("distance_accumulated", st.DistanceAccumulated, "max_delivery_distance", p.MaxDeliveryDistance)
				check("load_accumulated", st.LoadAccumulated, "courier_item_capacity", p.CourierItemCapacity)
				check("weight_accumulated", st.WeightAccumulated, "courier_weight_capacity", p.CourierWeightCapacity)
			}
		}
	}
	rep.OK = len(rep.Violations) == 0
	return rep
}
