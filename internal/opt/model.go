package opt

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCallback = errors.New("opt: unknown transit callback")
	ErrBadIndex        = errors.New("opt: index out of range")
	ErrDuplicateDim    = errors.New("opt: duplicate dimension name")
)

// TransitCallback returns the transit between two solver indices.
type TransitCallback func(fromIndex, toIndex int64) int64

// UnaryTransitCallback returns a transit that depends only on the origin index.
type UnaryTransitCallback func(fromIndex int64) int64

type transit struct {
	binary TransitCallback
	unary  UnaryTransitCallback
}

func (t transit) eval(from, to int64) int64 {
	if t.unary != nil {
		return t.unary(from)
	}
	return t.binary(from, to)
}

type pdPair struct{ pickup, delivery int64 }

// Model is a vehicle routing model over the indices of an IndexManager:
// an arc cost, any number of cumulative dimensions, pickup-delivery pairs,
// same-vehicle groups and allowed-vehicle restrictions.
type Model struct {
	mgr      *IndexManager
	transits []transit
	arcCost  int
	dims     []*Dimension
	byName   map[string]*Dimension
	pairs    []pdPair
	groups   [][]int64
	allowed  map[int64]map[int]bool

	onSolution []func()
	objective  int64
	finish     bool
	status     Status
}

func NewModel(mgr *IndexManager) *Model {
	return &Model{mgr: mgr, arcCost: -1, byName: map[string]*Dimension{}}
}

func (m *Model) Manager() *IndexManager { return m.mgr }

// Size is the number of solver indices including vehicle starts and ends.
func (m *Model) Size() int { return m.mgr.NumIndices() }

func (m *Model) Vehicles() int { return m.mgr.numVehicles }

func (m *Model) Start(vehicle int) int64 { return m.mgr.starts[vehicle] }
func (m *Model) End(vehicle int) int64 { return m.mgr.ends[vehicle] }

// IsStart reports whether index is the start of some vehicle.
func (m *Model) IsStart(index int64) bool {
	first := int64(len(m.mgr.indexToNode) - 2*m.mgr.numVehicles)
	return index >= first && index < first+int64(m.mgr.numVehicles)
}

// IsEnd reports whether index is the end of some vehicle.
func (m *Model) IsEnd(index int64) bool {
	return index >= int64(len(m.mgr.indexToNode)-m.mgr.numVehicles) && index < int64(len(m.mgr.indexToNode))
}

func (m *Model) isVisit(index int64) bool {
	return index >= 0 && index < int64(len(m.mgr.indexToNode)-2*m.mgr.numVehicles)
}

func (m *Model) checkIndex(index int64) error {
	if index < 0 || index >= int64(m.Size()) {
		return fmt.Errorf("%w: %d", ErrBadIndex, index)
	}
	return nil
}

// RegisterTransitCallback stores cb and returns its handle.
func (m *Model) RegisterTransitCallback(cb TransitCallback) int {
	m.transits = append(m.transits, transit{binary: cb})
	return len(m.transits) - 1
}

// RegisterUnaryTransitCallback stores cb and returns its handle.
func (m *Model) RegisterUnaryTransitCallback(cb UnaryTransitCallback) int {
	m.transits = append(m.transits, transit{unary: cb})
	return len(m.transits) - 1
}

func (m *Model) SetArcCostEvaluatorOfAllVehicles(cb int) error {
	if cb < 0 || cb >= len(m.transits) {
		return fmt.Errorf("%w: %d", ErrUnknownCallback, cb)
	}
	m.arcCost = cb
	return nil
}

// AddDimension adds a cumulative quantity with the same capacity for every vehicle.
func (m *Model) AddDimension(cb int, slackMax, capacity int64, fixStartCumulToZero bool, name string) (*Dimension, error) {
	caps := make([]int64, m.Vehicles())
	for i := range caps {
		caps[i] = capacity
	}
	return m.AddDimensionWithVehicleCapacity(cb, slackMax, caps, fixStartCumulToZero, name)
}

// AddDimensionWithVehicleCapacity adds a cumulative quantity with a capacity per vehicle.
func (m *Model) AddDimensionWithVehicleCapacity(cb int, slackMax int64, capacities []int64, fixStartCumulToZero bool, name string) (*Dimension, error) {
	if cb < 0 || cb >= len(m.transits) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCallback, cb)
	}
	if len(capacities) != m.Vehicles() {
		return nil, fmt.Errorf("opt: dimension %q: %d capacities for %d vehicles", name, len(capacities), m.Vehicles())
	}
	if slackMax < 0 {
		return nil, fmt.Errorf("opt: dimension %q: negative slack %d", name, slackMax)
	}
	if _, ok := m.byName[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateDim, name)
	}
	d := newDimension(m, name, cb, slackMax, capacities, fixStartCumulToZero)
	m.dims = append(m.dims, d)
	m.byName[name] = d
	return d, nil
}

// Dimension returns the dimension registered under name.
func (m *Model) Dimension(name string) (*Dimension, bool) {
	d, ok := m.byName[name]
	return d, ok
}

// AddVariableMinimizedByFinalizer asks the solver to push the cumul of index
// on d to its smallest feasible value once a route is fixed.
func (m *Model) AddVariableMinimizedByFinalizer(d *Dimension, index int64) error {
	if err := m.checkIndex(index); err != nil {
		return err
	}
	d.minimized = append(d.minimized, index)
	return nil
}

// AddPickupAndDelivery requires pickup and delivery on the same vehicle with
// the pickup visited first.
func (m *Model) AddPickupAndDelivery(pickup, delivery int64) error {
	for _, idx := range []int64{pickup, delivery} {
		if !m.isVisit(idx) {
			return fmt.Errorf("%w: pickup-delivery on non-visit index %d", ErrBadIndex, idx)
		}
	}
	m.pairs = append(m.pairs, pdPair{pickup: pickup, delivery: delivery})
	return nil
}

// AddSameVehicle requires all indices to be served by one vehicle.
func (m *Model) AddSameVehicle(indices ...int64) error {
	for _, idx := range indices {
		if !m.isVisit(idx) {
			return fmt.Errorf("%w: same-vehicle on non-visit index %d", ErrBadIndex, idx)
		}
	}
	if len(indices) > 1 {
		m.groups = append(m.groups, append([]int64(nil), indices...))
	}
	return nil
}

// SetAllowedVehicles restricts index to the listed vehicles.
func (m *Model) SetAllowedVehicles(index int64, vehicles []int) error {
	if !m.isVisit(index) {
		return fmt.Errorf("%w: allowed vehicles on non-visit index %d", ErrBadIndex, index)
	}
	if m.allowed == nil {
		m.allowed = map[int64]map[int]bool{}
	}
	set := map[int]bool{}
	for _, v := range vehicles {
		set[v] = true
	}
	m.allowed[index] = set
	return nil
}

// AddAtSolutionCallback registers fn to run on every improving solution.
func (m *Model) AddAtSolutionCallback(fn func()) { m.onSolution = append(m.onSolution, fn) }

// CostVar is the objective of the solution being reported to callbacks.
func (m *Model) CostVar() int64 { return m.objective }

// FinishCurrentSearch stops the running search after the current solution.
func (m *Model) FinishCurrentSearch() { m.finish = true }

func (m *Model) Status() Status { return m.status }

// GetArcCostForVehicle evaluates the arc cost. An empty route costs nothing.
func (m *Model) GetArcCostForVehicle(from, to int64, vehicle int) int64 {
	if m.arcCost < 0 {
		return 0
	}
	if from == m.Start(vehicle) && to == m.End(vehicle) {
		return 0
	}
	return m.transits[m.arcCost].eval(from, to)
}
