package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierplan/internal/geo"
	"courierplan/internal/integrations"
)

const sample = `order_id, pickup_lat, pickup_lon, delivery_lat, delivery_lon, order_number_items, weight, time_window_start_s, time_window_end_s, bundle_id
A1,52.37,4.89,52.38,4.90,2,1.5,0,3600.0,b1
A2,52.37,4.89,52.36,4.88,1,0.5,600,7200,
`

func TestParse(t *testing.T) {
	set, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, set.Orders, 2)
	assert.Equal(t, 2, set.NumCouriers)
	assert.True(t, set.HasWeights)
	assert.False(t, set.HasPickupWindows)

	a := set.Orders[0]
	assert.Equal(t, "A1", a.ID)
	assert.Equal(t, geo.Point{X: 52.37, Y: 4.89}, a.Pickup)
	assert.Equal(t, geo.Point{X: 52.38, Y: 4.90}, a.Delivery)
	assert.Equal(t, int64(2), a.Items)
	assert.Equal(t, 1.5, a.Weight)
	assert.Equal(t, int64(3600), a.Window.End)
	assert.Equal(t, "b1", a.BundleID)
	assert.Empty(t, set.Orders[1].BundleID)
}

func TestParsePickupWindowsAndID(t *testing.T) {
	in := "id,pickup_lat,pickup_lon,delivery_lat,delivery_lon,order_number_items,time_window_start_s,time_window_end_s,pickup_time_window_start_s,pickup_time_window_end_s\n" +
		"7,0,0,1,1,1,100,200,0,50\n"
	set, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.True(t, set.HasPickupWindows)
	assert.False(t, set.HasWeights)
	assert.Equal(t, "7", set.Orders[0].ID)
	assert.Equal(t, int64(50), set.Orders[0].PickupWindow.End)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("id,pickup_lat\n1,2\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, integrations.ErrEmptyBatch)

	header := "pickup_lat,pickup_lon,delivery_lat,delivery_lon,order_number_items,time_window_start_s,time_window_end_s"
	_, err = Parse(strings.NewReader(header + "\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Parse(strings.NewReader(header + ",id\nx,0,0,0,1,0,10,a\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestAdapterReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "001_small_input.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	a := Adapter{Path: path}
	assert.Equal(t, "csv-file", a.Name())
	set, err := a.FetchOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, set.Orders, 2)

	_, err = Adapter{Path: filepath.Join(t.TempDir(), "missing.csv")}.FetchOrders(context.Background())
	assert.Error(t, err)
}
