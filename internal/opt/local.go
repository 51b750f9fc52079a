package opt

import "slices"

// improve applies relocate, 2-opt and exchange moves until none improves the
// objective or the search is stopped.
func (s *searcher) improve() {
	for !s.done() {
		moved := s.relocatePass()
		moved = s.twoOptPass() || moved
		moved = s.exchangePass() || moved
		if !moved {
			return
		}
	}
}

func removeUnit(route, unit []int64) []int64 {
	out := make([]int64, 0, len(route))
	for _, idx := range route {
		if !slices.Contains(unit, idx) {
			out = append(out, idx)
		}
	}
	return out
}

// relocatePass moves whole units to their best position on any vehicle.
func (s *searcher) relocatePass() bool {
	moved := false
	for u := range s.assigned {
		if s.done() {
			return moved
		}
		v := s.assigned[u]
		if v < 0 {
			continue
		}
		without := removeUnit(s.routes[v], s.units[u])
		gain := s.routeCost(v, s.routes[v]) - s.routeCost(v, without)
		canLeave := s.feasible(v, without)
		bestV := -1
		var best insertion
		for _, w := range s.candidates() {
			base := s.routes[w]
			if w == v {
				base = without
			} else if !canLeave {
				continue
			}
			ins := s.bestInsertion(u, w, base)
			if ins.ok && ins.delta < gain && (bestV < 0 || ins.delta < best.delta) {
				bestV, best = w, ins
			}
		}
		if bestV < 0 {
			continue
		}
		if bestV != v {
			s.routes[v] = without
		}
		s.routes[bestV] = best.route
		s.assigned[u] = bestV
		s.cost += best.delta - gain
		moved = true
		s.report()
	}
	return moved
}

// twoOptPass reverses route segments.
func (s *searcher) twoOptPass() bool {
	moved := false
	for v := range s.routes {
		r := s.routes[v]
		if len(r) < 2 {
			continue
		}
		cur := s.routeCost(v, r)
		for i := 0; i < len(r)-1; i++ {
			if s.done() {
				return moved
			}
			for k := i + 1; k < len(r); k++ {
				cand := slices.Clone(r)
				slices.Reverse(cand[i : k+1])
				c := s.routeCost(v, cand)
				if c < cur && s.feasible(v, cand) {
					s.cost += c - cur
					s.routes[v] = cand
					r, cur = cand, c
					moved = true
					s.report()
				}
			}
		}
	}
	return moved
}

// exchangePass swaps two single-visit units on different vehicles.
func (s *searcher) exchangePass() bool {
	moved := false
	for a := range s.units {
		if len(s.units[a]) != 1 || s.assigned[a] < 0 {
			continue
		}
		if s.done() {
			return moved
		}
		for b := a + 1; b < len(s.units); b++ {
			va, vb := s.assigned[a], s.assigned[b]
			if len(s.units[b]) != 1 || vb < 0 || va == vb {
				continue
			}
			ia, ib := s.units[a][0], s.units[b][0]
			ra, rb := slices.Clone(s.routes[va]), slices.Clone(s.routes[vb])
			ra[slices.Index(ra, ia)] = ib
			rb[slices.Index(rb, ib)] = ia
			before := s.routeCost(va, s.routes[va]) + s.routeCost(vb, s.routes[vb])
			after := s.routeCost(va, ra) + s.routeCost(vb, rb)
			if after >= before || !s.feasible(va, ra) || !s.feasible(vb, rb) {
				continue
			}
			s.routes[va], s.routes[vb] = ra, rb
			s.assigned[a], s.assigned[b] = vb, va
			s.cost += after - before
			moved = true
			s.report()
			if s.done() {
				return moved
			}
		}
	}
	return moved
}
