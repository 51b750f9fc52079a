// Package vrp assembles routing models from an instance. A base model owns the
// solver session; installer steps add the constraint layers a mode needs.
package vrp

import (
	"errors"
	"fmt"

	"courierplan/internal/instance"
	"courierplan/internal/opt"
	"courierplan/internal/params"
)

var (
	ErrManagerExists   = errors.New("vrp: routing manager already created")
	ErrUnsupportedMode = errors.New("vrp: unsupported model type")
	ErrState           = errors.New("vrp: operation not allowed in this state")
	ErrMissingField    = errors.New("vrp: instance field not available")
)

// State tracks the one-way life cycle of a model.
type State int

const (
	Unbuilt State = iota
	ManagerCreated
	DimensionsRegistered
	ArcCostBound
	Solved
	SolveFailed
)

func (s State) String() string {
	switch s {
	case Unbuilt:
		return "unbuilt"
	case ManagerCreated:
		return "manager-created"
	case DimensionsRegistered:
		return "dimensions-registered"
	case ArcCostBound:
		return "arc-cost-bound"
	case Solved:
		return "solved"
	case SolveFailed:
		return "solve-failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Field names an instance array a callback reads from.
type Field int

const (
	FieldDistance Field = iota
	FieldTime
	FieldCost
	FieldItems
	FieldWeights
)

func (f Field) String() string {
	switch f {
	case FieldDistance:
		return "distance_matrix"
	case FieldTime:
		return "time_matrix"
	case FieldCost:
		return "cost_matrix"
	case FieldItems:
		return "number_of_items"
	case FieldWeights:
		return "weights"
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// Model is one routing model over one instance. It is built and solved once.
type Model struct {
	in     *instance.Instance
	params params.Params
	opts   Options

	state    State
	mgr      *opt.IndexManager
	routing  *opt.Model
	arcCost  int
	strategy opt.FirstSolutionStrategy
	steps    []Step
	observer *ProgressObserver
}

// Options are per-solve hooks.
type Options struct {
	// OnProgress receives every reported candidate objective.
	OnProgress func(Progress)
}

// Progress describes one candidate seen during search.
type Progress struct {
	Index     int   `json:"index"`
	Objective int64 `json:"objective"`
	Best      int64 `json:"best"`
	Stagnant  int   `json:"stagnant"`
	Stopped   bool  `json:"stopped"`
}

// NewModel returns an unbuilt model. It fails for modes that do not solve a
// routing model.
func NewModel(in *instance.Instance, p params.Params, opts Options) (*Model, error) {
	steps, strategy, err := StepsFor(p.Mode)
	if err != nil {
		return nil, err
	}
	return &Model{in: in, params: p, opts: opts, steps: steps, strategy: strategy, arcCost: -1}, nil
}

func (m *Model) State() State { return m.state }
func (m *Model) Instance() *instance.Instance { return m.in }
func (m *Model) Params() params.Params { return m.params }
func (m *Model) Routing() *opt.Model { return m.routing }
func (m *Model) Manager() *opt.IndexManager { return m.mgr }
func (m *Model) Strategy() opt.FirstSolutionStrategy { return m.strategy }

// StepNames lists the installer steps in order.
func (m *Model) StepNames() []string {
	out := make([]string, len(m.steps))
	for i, s := range m.steps {
		out[i] = s.Name
	}
	return out
}

// CreateManager creates the index manager and routing session. It may be called once.
func (m *Model) CreateManager() error {
	if m.state != Unbuilt {
		return ErrManagerExists
	}
	mgr, err := opt.NewIndexManager(m.in.NumNodes(), m.in.NumVehicles, m.in.Depot)
	if err != nil {
		return fmt.Errorf("vrp: create manager: %w", err)
	}
	m.mgr = mgr
	m.routing = opt.NewModel(mgr)
	if m.params.TrackSolverProgress || m.opts.OnProgress != nil {
		m.observer = NewProgressObserver(DefaultPatience)
		m.observer.Log = m.params.TrackSolverProgress
		m.routing.AddAtSolutionCallback(func() {
			pr := m.observer.OnCandidate(m.routing.CostVar())
			if m.opts.OnProgress != nil {
				m.opts.OnProgress(pr)
			}
			if pr.Stopped {
				m.routing.FinishCurrentSearch()
			}
		})
	}
	m.state = ManagerCreated
	return nil
}

func (m *Model) matrix(f Field) ([][]int64, error) {
	switch f {
	case FieldDistance:
		return m.in.DistanceMatrix, nil
	case FieldTime:
		return m.in.TimeMatrix, nil
	case FieldCost:
		return m.in.CostMatrix, nil
	}
	return nil, fmt.Errorf("%w: %s is not a matrix", ErrMissingField, f)
}

func (m *Model) vector(f Field) ([]int64, error) {
	switch f {
	case FieldItems:
		return m.in.Items, nil
	case FieldWeights:
		if m.in.Weight == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, f)
		}
		return m.in.Weight.PerNode, nil
	}
	return nil, fmt.Errorf("%w: %s is not a per-node field", ErrMissingField, f)
}

func (m *Model) canRegister() error {
	if m.state != ManagerCreated && m.state != DimensionsRegistered {
		return fmt.Errorf("%w: register callback in state %s", ErrState, m.state)
	}
	return nil
}

// RegisterTransitCallback registers a callback reading matrix f between the nodes of two indices.
func (m *Model) RegisterTransitCallback(f Field) (int, error) {
	if err := m.canRegister(); err != nil {
		return 0, err
	}
	mat, err := m.matrix(f)
	if err != nil {
		return 0, err
	}
	mgr := m.mgr
	m.state = DimensionsRegistered
	return m.routing.RegisterTransitCallback(func(from, to int64) int64 {
		return mat[mgr.IndexToNode(from)][mgr.IndexToNode(to)]
	}), nil
}

// RegisterUnaryCallback registers a callback reading per-node field f at the origin.
func (m *Model) RegisterUnaryCallback(f Field) (int, error) {
	if err := m.canRegister(); err != nil {
		return 0, err
	}
	vec, err := m.vector(f)
	if err != nil {
		return 0, err
	}
	mgr := m.mgr
	m.state = DimensionsRegistered
	return m.routing.RegisterUnaryTransitCallback(func(from int64) int64 {
		return vec[mgr.IndexToNode(from)]
	}), nil
}

// BindArcCost sets the callback every vehicle pays per arc.
func (m *Model) BindArcCost(cb int) error {
	if m.state != ManagerCreated && m.state != DimensionsRegistered {
		return fmt.Errorf("%w: bind arc cost in state %s", ErrState, m.state)
	}
	if err := m.routing.SetArcCostEvaluatorOfAllVehicles(cb); err != nil {
		return fmt.Errorf("vrp: bind arc cost: %w", err)
	}
	m.state = ArcCostBound
	return nil
}

// Build creates the manager, runs every installer step and binds the arc cost
// chosen by the last step that set one.
func (m *Model) Build() error {
	if err := m.CreateManager(); err != nil {
		return err
	}
	for _, s := range m.steps {
		if err := s.Install(m); err != nil {
			return fmt.Errorf("vrp: install %s: %w", s.Name, err)
		}
	}
	if m.arcCost < 0 {
		return fmt.Errorf("%w: no step chose an arc cost", ErrState)
	}
	return m.BindArcCost(m.arcCost)
}

// setArcCost records the callback a step wants as arc cost; later steps override.
func (m *Model) setArcCost(cb int) { m.arcCost = cb }
