package vrp

import (
	"fmt"

	"courierplan/internal/opt"
	"courierplan/internal/params"
)

// Step installs one constraint layer on a model.
type Step struct {
	Name    string
	Install func(m *Model) error
}

var (
	distanceStep  = Step{Name: "distance", Install: installDistance}
	timeStep      = Step{Name: "time", Install: installTime}
	capacityStep  = Step{Name: "capacity", Install: installCapacity}
	scheduledStep = Step{Name: "scheduled", Install: installScheduled}
	liveStep      = Step{Name: "live", Install: installLive}
)

// StepsFor returns the installer steps and first-solution strategy of a mode.
// Each mode extends the one before it.
func StepsFor(mode params.Mode) ([]Step, opt.FirstSolutionStrategy, error) {
	switch mode {
	case params.ModeDistance:
		return []Step{distanceStep}, opt.Automatic, nil
	case params.ModeTime:
		return []Step{distanceStep, timeStep}, opt.Automatic, nil
	case params.ModeNoTW:
		return []Step{distanceStep, timeStep, capacityStep}, opt.Automatic, nil
	case params.ModeScheduled:
		return []Step{distanceStep, timeStep, capacityStep, scheduledStep}, opt.PathCheapestArc, nil
	case params.ModeLive:
		return []Step{distanceStep, timeStep, capacityStep, scheduledStep, liveStep}, opt.ParallelCheapestInsertion, nil
	}
	return nil, 0, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
}

func installDistance(m *Model) error {
	cb, err := m.RegisterTransitCallback(FieldDistance)
	if err != nil {
		return err
	}
	if m.params.MaxDeliveryDistance > 0 {
		if _, err := m.routing.AddDimension(cb, 0, m.params.MaxDeliveryDistance, false, "distance_constraint"); err != nil {
			return err
		}
	}
	m.setArcCost(cb)
	return nil
}

func installTime(m *Model) error {
	cb, err := m.RegisterTransitCallback(FieldTime)
	if err != nil {
		return err
	}
	wait := m.params.AllowedWaitingTimeAtDel
	if _, err := m.routing.AddDimension(cb, wait, m.params.MaxTimeDuration, false, "Time"); err != nil {
		return err
	}
	if _, err := m.routing.AddDimension(cb, wait, m.params.MaxDeliveryTime, false, "time_constraint"); err != nil {
		return err
	}
	m.setArcCost(cb)
	return nil
}

func installCapacity(m *Model) error {
	cost, err := m.RegisterTransitCallback(FieldCost)
	if err != nil {
		return err
	}
	items, err := m.RegisterUnaryCallback(FieldItems)
	if err != nil {
		return err
	}
	if _, err := m.routing.AddDimensionWithVehicleCapacity(items, 0, m.in.ItemCapacities, true, "ItemCapacity"); err != nil {
		return err
	}
	if m.in.Weight != nil {
		weights, err := m.RegisterUnaryCallback(FieldWeights)
		if err != nil {
			return err
		}
		if _, err := m.routing.AddDimensionWithVehicleCapacity(weights, 0, m.in.Weight.Capacities, true, "WeightCapacity"); err != nil {
			return err
		}
	}
	for _, b := range m.in.Bundles {
		idx := make([]int64, len(b))
		for i, node := range b {
			idx[i] = m.mgr.NodeToIndex(node)
		}
		if err := m.routing.AddSameVehicle(idx...); err != nil {
			return err
		}
	}
	m.setArcCost(cost)
	return nil
}

func installScheduled(m *Model) error {
	dim, ok := m.routing.Dimension("Time")
	if !ok {
		return fmt.Errorf("%w: Time dimension", ErrMissingField)
	}
	for v := 0; v < m.routing.Vehicles(); v++ {
		if err := m.routing.AddVariableMinimizedByFinalizer(dim, m.routing.Start(v)); err != nil {
			return err
		}
		if err := m.routing.AddVariableMinimizedByFinalizer(dim, m.routing.End(v)); err != nil {
			return err
		}
	}
	for node, w := range m.in.TimeWindows {
		if node == m.in.Depot {
			continue
		}
		if err := dim.SetCumulRange(m.mgr.NodeToIndex(node), w.Start, w.End); err != nil {
			return err
		}
	}
	return nil
}

func installLive(m *Model) error {
	if m.in.PickupDelivery == nil {
		return fmt.Errorf("%w: pickup-delivery pairs", ErrMissingField)
	}
	for _, pr := range m.in.PickupDelivery.Pairs {
		p, d := m.mgr.NodeToIndex(pr[0]), m.mgr.NodeToIndex(pr[1])
		if err := m.routing.AddPickupAndDelivery(p, d); err != nil {
			return err
		}
		if err := m.routing.AddSameVehicle(p, d); err != nil {
			return err
		}
	}
	return nil
}
