package opt

// Assignment is a solved route plan.
type Assignment struct {
	model     *Model
	next      []int64
	vehicle   []int
	cumul     map[*Dimension][]window
	objective int64
}

// Next returns the successor of index, or -1 for vehicle ends.
func (a *Assignment) Next(index int64) int64 { return a.next[index] }

// Vehicle returns the vehicle serving index.
func (a *Assignment) Vehicle(index int64) int { return a.vehicle[index] }

func (a *Assignment) ObjectiveValue() int64 { return a.objective }

// CumulMin is the smallest feasible cumul of index on d.
func (a *Assignment) CumulMin(d *Dimension, index int64) int64 { return a.cumul[d][index].min }

// CumulMax is the largest feasible cumul of index on d.
func (a *Assignment) CumulMax(d *Dimension, index int64) int64 { return a.cumul[d][index].max }

// Route lists the visits of vehicle in order, without its start and end.
func (a *Assignment) Route(vehicle int) []int64 {
	var out []int64
	for idx := a.next[a.model.Start(vehicle)]; idx >= 0 && !a.model.IsEnd(idx); idx = a.next[idx] {
		out = append(out, idx)
	}
	return out
}
