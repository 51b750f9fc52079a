package params

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// VehicleLimits are the peak load and weight a vehicle class can carry.
type VehicleLimits struct {
	NumberOfItems int64 `json:"number_of_items"`
	Weight        int64 `json:"weight"`
}

// Allows reports whether a route peaking at items/weight fits within the limits.
func (l VehicleLimits) Allows(items, weight int64) bool {
	return items <= l.NumberOfItems && weight <= l.Weight
}

type vehicleEntry struct {
	Class  VehicleClass
	Limits VehicleLimits
}

// VehicleConstraints is the vehicle-class capacity table, kept in declaration order.
type VehicleConstraints struct {
	entries []vehicleEntry
}

// NewVehicleConstraints builds a table from explicit entries.
func NewVehicleConstraints(limits map[VehicleClass]VehicleLimits) *VehicleConstraints {
	vc := &VehicleConstraints{}
	for _, c := range vehicleClasses.order {
		if l, ok := limits[c]; ok {
			vc.entries = append(vc.entries, vehicleEntry{Class: c, Limits: l})
		}
	}
	return vc
}

// Limits returns the limits for a class.
func (vc *VehicleConstraints) Limits(c VehicleClass) (VehicleLimits, bool) {
	for _, e := range vc.entries {
		if e.Class == c {
			return e.Limits, true
		}
	}
	return VehicleLimits{}, false
}

// Len is the number of classes in the table.
func (vc *VehicleConstraints) Len() int { return len(vc.entries) }

// ClassesFor lists the names of every class whose limits are not exceeded.
func (vc *VehicleConstraints) ClassesFor(items, weight int64) []string {
	out := []string{}
	for _, e := range vc.entries {
		if e.Limits.Allows(items, weight) {
			out = append(out, e.Class.String())
		}
	}
	return out
}

func (vc *VehicleConstraints) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range vc.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(e.Class.String())
		v, err := json.Marshal(e.Limits)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object token by token so a repeated class name is
// reported instead of silently overwritten.
func (vc *VehicleConstraints) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("vehicle_constraints must be an object")
	}
	seen := map[VehicleClass]bool{}
	vc.entries = nil
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		class, err := ParseVehicleClass(name)
		if err != nil {
			return err
		}
		if seen[class] {
			return fmt.Errorf("%w: %s has more items in the constraints", ErrDuplicateVehicleClass, name)
		}
		seen[class] = true
		raw := json.RawMessage{}
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		limits := VehicleLimits{NumberOfItems: 1, Weight: 1}
		ld := json.NewDecoder(bytes.NewReader(raw))
		ld.DisallowUnknownFields()
		if err := ld.Decode(&limits); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		vc.entries = append(vc.entries, vehicleEntry{Class: class, Limits: limits})
	}
	_, err = dec.Token()
	return err
}
