package params

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownMode           = errors.New("unknown model type")
	ErrUnknownVehicleClass   = errors.New("unknown vehicle class")
	ErrDuplicateVehicleClass = errors.New("duplicate vehicle class")
)

// enumTable is a closed name<->value mapping built once at package init.
type enumTable[T comparable] struct {
	byName map[string]T
	byVal  map[T]string
	order  []T
}

func newEnumTable[T comparable](names map[T]string, order []T) enumTable[T] {
	t := enumTable[T]{byName: map[string]T{}, byVal: map[T]string{}, order: order}
	for _, v := range order {
		name, ok := names[v]
		if !ok {
			panic(fmt.Sprintf("enum value %v has no name", v))
		}
		if _, dup := t.byName[name]; dup {
			panic("duplicate enum name " + name)
		}
		t.byName[name] = v
		t.byVal[v] = name
	}
	if len(t.byVal) != len(names) {
		panic("enum table has names outside its order list")
	}
	return t
}

func (t enumTable[T]) lookup(name string) (T, bool) {
	v, ok := t.byName[name]
	return v, ok
}

func (t enumTable[T]) name(v T) (string, bool) {
	n, ok := t.byVal[v]
	return n, ok
}

func (t enumTable[T]) names() []string {
	out := make([]string, 0, len(t.order))
	for _, v := range t.order {
		out = append(out, t.byVal[v])
	}
	return out
}

// Mode selects which constraint layers are installed on the routing model.
type Mode int

const (
	ModeScheduled Mode = iota + 1
	ModeLive
	ModeNoTW
	ModeTime
	ModeDistance
	ModeQuick
)

var modes = newEnumTable(map[Mode]string{
	ModeScheduled: "scheduled",
	ModeLive:      "live",
	ModeNoTW:      "no_tw",
	ModeTime:      "time",
	ModeDistance:  "distance",
	ModeQuick:     "quick",
}, []Mode{ModeScheduled, ModeLive, ModeNoTW, ModeTime, ModeDistance, ModeQuick})

// ParseMode resolves a model type by its exact name.
func ParseMode(name string) (Mode, error) {
	m, ok := modes.lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q (allowed: %v)", ErrUnknownMode, name, modes.names())
	}
	return m, nil
}

// ModeNames lists every model type name in declaration order.
func ModeNames() []string { return modes.names() }

func (m Mode) String() string {
	if n, ok := modes.name(m); ok {
		return n
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Valid reports whether m is one of the declared model types.
func (m Mode) Valid() bool {
	_, ok := modes.name(m)
	return ok
}

// PickupDelivery reports whether the mode lays out separate pickup and delivery nodes.
func (m Mode) PickupDelivery() bool { return m == ModeLive }

func (m Mode) MarshalJSON() ([]byte, error) {
	n, ok := modes.name(m)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return json.Marshal(n)
}

func (m *Mode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("model_type must be a string: %w", err)
	}
	v, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// VehicleClass is a named capacity tier a route can be flagged with.
type VehicleClass int

const (
	Bicycle VehicleClass = iota + 1
	Motorbike
	Car
)

var vehicleClasses = newEnumTable(map[VehicleClass]string{
	Bicycle:   "BICYCLE",
	Motorbike: "MOTORBIKE",
	Car:       "CAR",
}, []VehicleClass{Bicycle, Motorbike, Car})

// ParseVehicleClass resolves a vehicle class by its exact name.
func ParseVehicleClass(name string) (VehicleClass, error) {
	v, ok := vehicleClasses.lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q (allowed: %v)", ErrUnknownVehicleClass, name, vehicleClasses.names())
	}
	return v, nil
}

func (v VehicleClass) String() string {
	if n, ok := vehicleClasses.name(v); ok {
		return n
	}
	return fmt.Sprintf("VehicleClass(%d)", int(v))
}
