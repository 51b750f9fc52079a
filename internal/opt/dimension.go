package opt

import "math"

// Dimension accumulates a transit quantity along each route. With slack s the
// cumul at the next index is cumul(i) + transit(i, next) + slack(i), slack(i) in [0, s].
type Dimension struct {
	model     *Model
	name      string
	transit   int
	slackMax  int64
	caps      []int64
	fixStart  bool
	lo, hi    []int64
	minimized []int64
}

func newDimension(m *Model, name string, cb int, slackMax int64, caps []int64, fixStart bool) *Dimension {
	n := m.Size()
	d := &Dimension{
		model:    m,
		name:     name,
		transit:  cb,
		slackMax: slackMax,
		caps:     append([]int64(nil), caps...),
		fixStart: fixStart,
		lo:       make([]int64, n),
		hi:       make([]int64, n),
	}
	for i := range d.hi {
		d.hi[i] = math.MaxInt64
	}
	return d
}

func (d *Dimension) Name() string { return d.name }

// SetCumulRange restricts the cumul of index to [lo, hi].
func (d *Dimension) SetCumulRange(index, lo, hi int64) error {
	if err := d.model.checkIndex(index); err != nil {
		return err
	}
	d.lo[index] = lo
	d.hi[index] = hi
	return nil
}

// CumulRange reports the configured cumul bounds of index.
func (d *Dimension) CumulRange(index int64) (int64, int64) { return d.lo[index], d.hi[index] }

// VehicleCapacity is the upper bound on every cumul of the vehicle's route.
func (d *Dimension) VehicleCapacity(vehicle int) int64 { return d.caps[vehicle] }

// window is the feasible interval of a cumul.
type window struct{ min, max int64 }

// propagate computes the tightest cumul interval of every index on path,
// which runs from the vehicle start to its end. fixed optionally pins cumuls.
// It returns false when no assignment satisfies the bounds.
func (d *Dimension) propagate(s *searcher, vehicle int, path []int64, fixed map[int64]int64, out []window) bool {
	capacity := d.caps[vehicle]
	for i, idx := range path {
		lo, hi := d.lo[idx], d.hi[idx]
		if lo < 0 {
			lo = 0
		}
		if hi > capacity {
			hi = capacity
		}
		if i == 0 && d.fixStart {
			if lo > 0 {
				return false
			}
			hi = 0
		}
		if v, ok := fixed[idx]; ok {
			lo = max(lo, v)
			hi = min(hi, v)
		}
		if i > 0 {
			t := s.transit(d, path[i-1], idx)
			lo = max(lo, out[i-1].min+t)
			hi = min(hi, satAdd(out[i-1].max, t+d.slackMax))
		}
		if lo > hi {
			return false
		}
		out[i] = window{lo, hi}
	}
	for i := len(path) - 2; i >= 0; i-- {
		t := s.transit(d, path[i], path[i+1])
		out[i].max = min(out[i].max, out[i+1].max-t)
		out[i].min = max(out[i].min, out[i+1].min-t-d.slackMax)
		if out[i].min > out[i].max {
			return false
		}
	}
	return true
}

func satAdd(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
