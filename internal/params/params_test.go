package params

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	p := Default(ModeScheduled)
	assert.Equal(t, int64(86400), p.MaxTimeDuration)
	assert.Equal(t, int64(600), p.AllowedWaitingTimeAtDel)
	assert.Equal(t, int64(3600), p.MaxDeliveryTime)
	assert.Equal(t, int64(5000), p.MaxDeliveryDistance)
	assert.Equal(t, int64(60), p.WaitingTimeAtDelivery)
	assert.Equal(t, 3.0, p.Speed)
	assert.Equal(t, int64(5000), p.CourierCost)
	assert.True(t, p.FilterInfeasibleOrders)
	assert.False(t, p.MultiPickup)
	assert.Nil(t, p.VehicleConstraints)
	require.NoError(t, p.Validate())
}

func TestModeTableRoundTrip(t *testing.T) {
	for _, name := range ModeNames() {
		m, err := ParseMode(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.String())
	}
	_, err := ParseMode("Scheduled")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestParseJSONKeepsDefaults(t *testing.T) {
	p, err := Parse([]byte(`{"model_type":"no_tw","speed":5,"courier_cost":10}`), "json")
	require.NoError(t, err)
	assert.Equal(t, ModeNoTW, p.Mode)
	assert.Equal(t, 5.0, p.Speed)
	assert.Equal(t, int64(10), p.CourierCost)
	assert.Equal(t, int64(5000), p.MaxDeliveryDistance)
}

func TestParseRejectsUnknownMode(t *testing.T) {
	_, err := Parse([]byte(`{"model_type":"teleport"}`), "json")
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestParseRequiresMode(t *testing.T) {
	_, err := Parse([]byte(`{"speed":4}`), "json")
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "model_type", ce.Field)
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte(`{"model_type":"time","colour":"red"}`), "json")
	var ce *ConfigError
	assert.True(t, errors.As(err, &ce))
}

func TestVehicleConstraintsDuplicateClass(t *testing.T) {
	raw := `{"model_type":"scheduled","vehicle_constraints":{"BICYCLE":{"number_of_items":2,"weight":3},"BICYCLE":{"number_of_items":4,"weight":4}}}`
	_, err := Parse([]byte(raw), "json")
	assert.ErrorIs(t, err, ErrDuplicateVehicleClass)

	yml := "model_type: scheduled\nvehicle_constraints:\n  CAR: {number_of_items: 9, weight: 9}\n  CAR: {number_of_items: 1, weight: 1}\n"
	_, err = Parse([]byte(yml), "yaml")
	assert.ErrorIs(t, err, ErrDuplicateVehicleClass)
}

func TestVehicleConstraintsUnknownClass(t *testing.T) {
	_, err := Parse([]byte(`{"model_type":"scheduled","vehicle_constraints":{"TRUCK":{}}}`), "json")
	assert.ErrorIs(t, err, ErrUnknownVehicleClass)
}

func TestVehicleConstraintsClassesFor(t *testing.T) {
	yml := `
model_type: scheduled
vehicle_constraints:
  BICYCLE:
    number_of_items: 2
    weight: 3
  MOTORBIKE:
    number_of_items: 4
    weight: 8
  CAR:
    number_of_items: 10
    weight: 50
`
	p, err := Parse([]byte(yml), "yaml")
	require.NoError(t, err)
	require.NotNil(t, p.VehicleConstraints)
	assert.Equal(t, []string{"BICYCLE", "MOTORBIKE", "CAR"}, p.VehicleConstraints.ClassesFor(2, 3))
	assert.Equal(t, []string{"MOTORBIKE", "CAR"}, p.VehicleConstraints.ClassesFor(3, 3))
	assert.Equal(t, []string{}, p.VehicleConstraints.ClassesFor(11, 1))

	b, err := json.Marshal(p.VehicleConstraints)
	require.NoError(t, err)
	assert.JSONEq(t, `{"BICYCLE":{"number_of_items":2,"weight":3},"MOTORBIKE":{"number_of_items":4,"weight":8},"CAR":{"number_of_items":10,"weight":50}}`, string(b))
}

func TestVehicleLimitsDefaultToOne(t *testing.T) {
	p, err := Parse([]byte(`{"model_type":"live","vehicle_constraints":{"BICYCLE":{}}}`), "json")
	require.NoError(t, err)
	l, ok := p.VehicleConstraints.Limits(Bicycle)
	require.True(t, ok)
	assert.Equal(t, VehicleLimits{NumberOfItems: 1, Weight: 1}, l)
}

func TestSnapshotRoundTrip(t *testing.T) {
	p := Default(ModeLive)
	p.VehicleConstraints = NewVehicleConstraints(map[VehicleClass]VehicleLimits{Car: {NumberOfItems: 3, Weight: 4}})
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"model_type":"live"`)

	got, err := Parse(b, "json")
	require.NoError(t, err)
	assert.Equal(t, p.Mode, got.Mode)
	l, ok := got.VehicleConstraints.Limits(Car)
	require.True(t, ok)
	assert.Equal(t, int64(3), l.NumberOfItems)
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	jp := filepath.Join(dir, "001_x_config_time.json")
	require.NoError(t, os.WriteFile(jp, []byte(`{"model_type":"time","max_calc_time":2}`), 0o600))
	p, err := Load(jp)
	require.NoError(t, err)
	assert.Equal(t, ModeTime, p.Mode)
	assert.Equal(t, int64(2), p.MaxCalcTime)

	yp := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(yp, []byte("model_type: distance\nspeed: 0\n"), 0o600))
	_, err = Load(yp)
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, yp, ce.Source)
}

func TestOverlayKeepsBase(t *testing.T) {
	base := Default(ModeDistance)
	p, err := Overlay(base, []byte(`{"max_calc_time":3,"courier_cost":10}`))
	require.NoError(t, err)
	assert.Equal(t, ModeDistance, p.Mode)
	assert.Equal(t, int64(3), p.MaxCalcTime)
	assert.Equal(t, int64(10), p.CourierCost)
	assert.Equal(t, base.Speed, p.Speed)

	_, err = Overlay(base, []byte(`{"speed":"fast"}`))
	var ce *ConfigError
	assert.True(t, errors.As(err, &ce))
}
