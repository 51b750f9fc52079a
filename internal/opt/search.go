package opt

import (
	"fmt"
	"log"
	"math"
	"slices"
	"sort"
	"time"
)

// maxCachedIndices bounds the size of models whose transits are tabulated up front.
const maxCachedIndices = 1200

type searcher struct {
	m        *Model
	params   SearchParameters
	deadline time.Time

	arcTab [][]int64
	dimTab map[*Dimension][][]int64

	units    [][]int64
	pickupOf []int64
	sig      []int

	routes   [][]int64
	assigned []int
	cost     int64
	reported int
	stop     bool

	pos     []int
	pathBuf []int64
	winBuf  []window
}

type insertion struct {
	route []int64
	delta int64
	ok    bool
}

// SolveWithParameters builds a first solution with the configured strategy and
// improves it by local search until no move helps, the time limit passes, or a
// callback calls FinishCurrentSearch.
func (m *Model) SolveWithParameters(p SearchParameters) (*Assignment, Status) {
	m.finish = false
	if m.arcCost < 0 {
		m.status = StatusInvalid
		return nil, m.status
	}
	s := newSearcher(m, p)
	if !s.construct() {
		m.status = StatusFail
		if s.expired() {
			m.status = StatusFailTimeout
		}
		if p.LogSearch {
			log.Printf("[opt] construction failed status=%q", m.status)
		}
		return nil, m.status
	}
	s.cost = s.totalCost()
	s.report()
	if !p.NoLocalSearch {
		s.improve()
	}
	m.status = StatusSuccess
	return s.assignment(), m.status
}

// Solve runs SolveWithParameters with default parameters.
func (m *Model) Solve() (*Assignment, Status) {
	return m.SolveWithParameters(DefaultSearchParameters())
}

func newSearcher(m *Model, p SearchParameters) *searcher {
	size := m.Size()
	s := &searcher{
		m:        m,
		params:   p,
		pickupOf: make([]int64, size),
		routes:   make([][]int64, m.Vehicles()),
		pos:      make([]int, size),
		pathBuf:  make([]int64, 0, size),
		winBuf:   make([]window, size),
	}
	if p.TimeLimit > 0 {
		s.deadline = time.Now().Add(p.TimeLimit)
	}
	for i := range s.pos {
		s.pos[i] = -1
		s.pickupOf[i] = -1
	}
	for _, pr := range m.pairs {
		s.pickupOf[pr.delivery] = pr.pickup
	}
	if size <= maxCachedIndices {
		s.tabulate()
	}
	s.buildUnits()
	s.buildSignatures()
	return s
}

func (s *searcher) tabulate() {
	size := s.m.Size()
	table := func(t transit) [][]int64 {
		out := make([][]int64, size)
		for i := range out {
			out[i] = make([]int64, size)
			for j := range out[i] {
				out[i][j] = t.eval(int64(i), int64(j))
			}
		}
		return out
	}
	s.arcTab = table(s.m.transits[s.m.arcCost])
	s.dimTab = map[*Dimension][][]int64{}
	byCallback := map[int][][]int64{s.m.arcCost: s.arcTab}
	for _, d := range s.m.dims {
		tab, ok := byCallback[d.transit]
		if !ok {
			tab = table(s.m.transits[d.transit])
			byCallback[d.transit] = tab
		}
		s.dimTab[d] = tab
	}
}

// buildUnits groups visits that must travel together: pickup-delivery pairs and
// same-vehicle groups. Inside a unit, pickups come before their deliveries.
func (s *searcher) buildUnits() {
	visits := s.m.Size() - 2*s.m.Vehicles()
	parent := make([]int, visits)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int64) {
		ra, rb := find(int(a)), find(int(b))
		if ra != rb {
			parent[rb] = ra
		}
	}
	for _, pr := range s.m.pairs {
		union(pr.pickup, pr.delivery)
	}
	for _, g := range s.m.groups {
		for _, idx := range g[1:] {
			union(g[0], idx)
		}
	}
	unitOfRoot := map[int]int{}
	for i := 0; i < visits; i++ {
		r := find(i)
		u, ok := unitOfRoot[r]
		if !ok {
			u = len(s.units)
			unitOfRoot[r] = u
			s.units = append(s.units, nil)
		}
		s.units[u] = append(s.units[u], int64(i))
	}
	for _, unit := range s.units {
		sort.SliceStable(unit, func(a, b int) bool {
			return s.pickupOf[unit[a]] < 0 && s.pickupOf[unit[b]] >= 0
		})
	}
	s.assigned = make([]int, len(s.units))
	for i := range s.assigned {
		s.assigned[i] = -1
	}
}

// buildSignatures labels vehicles that are interchangeable while empty.
func (s *searcher) buildSignatures() {
	mgr := s.m.mgr
	membership := make([][]int64, s.m.Vehicles())
	for idx, set := range s.m.allowed {
		for v := range set {
			if v >= 0 && v < len(membership) {
				membership[v] = append(membership[v], idx)
			}
		}
	}
	keys := map[string]int{}
	s.sig = make([]int, s.m.Vehicles())
	for v := range s.sig {
		slices.Sort(membership[v])
		caps := make([]int64, len(s.m.dims))
		for i, d := range s.m.dims {
			caps[i] = d.caps[v]
		}
		key := fmt.Sprint(mgr.IndexToNode(s.m.Start(v)), mgr.IndexToNode(s.m.End(v)), caps, membership[v])
		id, ok := keys[key]
		if !ok {
			id = len(keys)
			keys[key] = id
		}
		s.sig[v] = id
	}
}

func (s *searcher) expired() bool {
	return !s.deadline.IsZero() && time.Now().After(s.deadline)
}

func (s *searcher) done() bool {
	return s.stop || s.m.finish || s.expired()
}

// arc is the arc cost between indices on vehicle's route; start to end is free.
func (s *searcher) arc(vehicle int, from, to int64) int64 {
	if from == s.m.Start(vehicle) && to == s.m.End(vehicle) {
		return 0
	}
	if s.arcTab != nil {
		return s.arcTab[from][to]
	}
	return s.m.transits[s.m.arcCost].eval(from, to)
}

func (s *searcher) transit(d *Dimension, from, to int64) int64 {
	if tab, ok := s.dimTab[d]; ok {
		return tab[from][to]
	}
	return s.m.transits[d.transit].eval(from, to)
}

func (s *searcher) routeCost(vehicle int, route []int64) int64 {
	if len(route) == 0 {
		return 0
	}
	c := s.arc(vehicle, s.m.Start(vehicle), route[0])
	for i := 1; i < len(route); i++ {
		c += s.arc(vehicle, route[i-1], route[i])
	}
	return c + s.arc(vehicle, route[len(route)-1], s.m.End(vehicle))
}

func (s *searcher) totalCost() int64 {
	var c int64
	for v, r := range s.routes {
		c += s.routeCost(v, r)
	}
	return c
}

func (s *searcher) path(vehicle int, route []int64) []int64 {
	p := append(s.pathBuf[:0], s.m.Start(vehicle))
	p = append(p, route...)
	return append(p, s.m.End(vehicle))
}

// feasible checks allowed vehicles, pickup-before-delivery order for pairs
// present on the route, and every dimension.
func (s *searcher) feasible(vehicle int, route []int64) bool {
	for _, idx := range route {
		if set, ok := s.m.allowed[idx]; ok && !set[vehicle] {
			return false
		}
	}
	if len(s.m.pairs) > 0 {
		for i, idx := range route {
			s.pos[idx] = i
		}
		ok := true
		for i, idx := range route {
			if p := s.pickupOf[idx]; p >= 0 && s.pos[p] > i {
				ok = false
				break
			}
		}
		for _, idx := range route {
			s.pos[idx] = -1
		}
		if !ok {
			return false
		}
	}
	if len(s.m.dims) == 0 {
		return true
	}
	p := s.path(vehicle, route)
	for _, d := range s.m.dims {
		if !d.propagate(s, vehicle, p, nil, s.winBuf[:len(p)]) {
			return false
		}
	}
	return true
}

func insertAt(route []int64, pos int, idx int64) []int64 {
	out := make([]int64, 0, len(route)+1)
	out = append(out, route[:pos]...)
	out = append(out, idx)
	return append(out, route[pos:]...)
}

// insertNode places idx at its cheapest feasible position.
func (s *searcher) insertNode(vehicle int, route []int64, idx int64) ([]int64, int64, bool) {
	type slot struct {
		pos   int
		delta int64
	}
	slots := make([]slot, 0, len(route)+1)
	for pos := 0; pos <= len(route); pos++ {
		prev, next := s.m.Start(vehicle), s.m.End(vehicle)
		if pos > 0 {
			prev = route[pos-1]
		}
		if pos < len(route) {
			next = route[pos]
		}
		d := s.arc(vehicle, prev, idx) + s.arc(vehicle, idx, next) - s.arc(vehicle, prev, next)
		slots = append(slots, slot{pos, d})
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].delta < slots[j].delta })
	for _, sl := range slots {
		cand := insertAt(route, sl.pos, idx)
		if s.feasible(vehicle, cand) {
			return cand, sl.delta, true
		}
	}
	return nil, 0, false
}

// bestInsertion inserts the nodes of unit one after the other.
func (s *searcher) bestInsertion(unit, vehicle int, route []int64) insertion {
	cur := route
	var total int64
	for _, idx := range s.units[unit] {
		next, d, ok := s.insertNode(vehicle, cur, idx)
		if !ok {
			return insertion{}
		}
		cur = next
		total += d
	}
	return insertion{route: cur, delta: total, ok: true}
}

// candidates lists the vehicles worth trying: every used one plus the first
// empty vehicle of each signature.
func (s *searcher) candidates() []int {
	out := make([]int, 0, len(s.routes))
	seen := map[int]bool{}
	for v, r := range s.routes {
		if len(r) > 0 {
			out = append(out, v)
			continue
		}
		if !seen[s.sig[v]] {
			seen[s.sig[v]] = true
			out = append(out, v)
		}
	}
	return out
}

func (s *searcher) construct() bool {
	strategy := s.params.FirstSolution
	if strategy == Automatic {
		strategy = PathCheapestArc
		if len(s.m.pairs) > 0 {
			strategy = ParallelCheapestInsertion
		}
	}
	if strategy == PathCheapestArc {
		s.pathCheapestArc()
	}
	return s.insertRemaining()
}

// pathCheapestArc extends one vehicle at a time with the unit whose first node
// is cheapest to reach from the route's last node.
func (s *searcher) pathCheapestArc() {
	for v := 0; v < s.m.Vehicles(); v++ {
		for {
			if s.expired() {
				return
			}
			last := s.m.Start(v)
			if r := s.routes[v]; len(r) > 0 {
				last = r[len(r)-1]
			}
			var cands []int
			for u, at := range s.assigned {
				if at < 0 {
					cands = append(cands, u)
				}
			}
			if len(cands) == 0 {
				return
			}
			sort.SliceStable(cands, func(i, j int) bool {
				return s.arc(v, last, s.units[cands[i]][0]) < s.arc(v, last, s.units[cands[j]][0])
			})
			placed := false
			for _, u := range cands {
				cand := append(slices.Clone(s.routes[v]), s.units[u]...)
				if s.feasible(v, cand) {
					s.routes[v] = cand
					s.assigned[u] = v
					placed = true
					break
				}
			}
			if !placed {
				break
			}
		}
	}
}

// insertRemaining places every unassigned unit at the globally cheapest
// feasible insertion, one unit per round.
func (s *searcher) insertRemaining() bool {
	var pending []int
	for u, at := range s.assigned {
		if at < 0 {
			pending = append(pending, u)
		}
	}
	cache := make([]map[int]insertion, len(s.units))
	for _, u := range pending {
		cache[u] = map[int]insertion{}
	}
	for len(pending) > 0 {
		if s.expired() {
			return false
		}
		bu, bv, bi := -1, -1, -1
		var best insertion
		vehicles := s.candidates()
		for i, u := range pending {
			for _, v := range vehicles {
				ins, ok := cache[u][v]
				if !ok {
					ins = s.bestInsertion(u, v, s.routes[v])
					cache[u][v] = ins
				}
				if ins.ok && (bu < 0 || ins.delta < best.delta) {
					bu, bv, bi, best = u, v, i, ins
				}
			}
		}
		if bu < 0 {
			return false
		}
		s.routes[bv] = best.route
		s.assigned[bu] = bv
		pending = slices.Delete(pending, bi, bi+1)
		for _, u := range pending {
			delete(cache[u], bv)
		}
	}
	return true
}

func (s *searcher) report() {
	s.reported++
	s.m.objective = s.cost
	if s.params.LogSearch {
		log.Printf("[opt] solution=%d objective=%d", s.reported, s.cost)
	}
	for _, fn := range s.m.onSolution {
		fn()
	}
	if s.params.SolutionLimit > 0 && s.reported >= s.params.SolutionLimit {
		s.stop = true
	}
}

func (s *searcher) assignment() *Assignment {
	size := s.m.Size()
	a := &Assignment{
		model:     s.m,
		next:      make([]int64, size),
		vehicle:   make([]int, size),
		cumul:     map[*Dimension][]window{},
		objective: s.cost,
	}
	for i := range a.next {
		a.next[i] = -1
		a.vehicle[i] = -1
	}
	for v, r := range s.routes {
		p := slices.Clone(s.path(v, r))
		for i, idx := range p {
			a.vehicle[idx] = v
			if i+1 < len(p) {
				a.next[idx] = p[i+1]
			}
		}
	}
	for _, d := range s.m.dims {
		ws := make([]window, size)
		for i := range ws {
			ws[i] = window{math.MinInt64, math.MaxInt64}
		}
		for v, r := range s.routes {
			p := slices.Clone(s.path(v, r))
			buf := make([]window, len(p))
			fixed := map[int64]int64{}
			d.propagate(s, v, p, fixed, buf)
			for _, idx := range d.minimized {
				at := slices.Index(p, idx)
				if at < 0 {
					continue
				}
				fixed[idx] = buf[at].min
				d.propagate(s, v, p, fixed, buf)
			}
			for i, idx := range p {
				ws[idx] = buf[i]
			}
		}
		a.cumul[d] = ws
	}
	return a
}
