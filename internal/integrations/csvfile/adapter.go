// Package csvfile reads order batches from CSV files with one order per row.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"courierplan/internal/geo"
	"courierplan/internal/instance"
	"courierplan/internal/integrations"
)

var ErrMissingColumn = errors.New("csvfile: missing column")

var required = []string{
	"pickup_lat", "pickup_lon",
	"delivery_lat", "delivery_lon",
	"order_number_items",
	"time_window_start_s", "time_window_end_s",
}

// Adapter reads the orders of a single CSV file.
type Adapter struct {
	Path string
}

var _ integrations.OrderSource = Adapter{}

func (a Adapter) Name() string { return "csv-file" }

func (a Adapter) FetchOrders(ctx context.Context) (instance.OrderSet, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return instance.OrderSet{}, fmt.Errorf("csvfile: %w", err)
	}
	defer f.Close()
	set, err := Parse(f)
	if err != nil {
		return set, fmt.Errorf("%s: %w", a.Path, err)
	}
	return set, ctx.Err()
}

// Parse reads orders from r. Header names are trimmed. The fleet gets one
// courier per row.
func Parse(r io.Reader) (instance.OrderSet, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return instance.OrderSet{}, integrations.ErrEmptyBatch
	}
	if err != nil {
		return instance.OrderSet{}, fmt.Errorf("csvfile: header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return instance.OrderSet{}, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	idCol, ok := col["id"]
	if !ok {
		if idCol, ok = col["order_id"]; !ok {
			return instance.OrderSet{}, fmt.Errorf("%w: id or order_id", ErrMissingColumn)
		}
	}
	_, hasWeight := col["weight"]
	_, hasPickupStart := col["pickup_time_window_start_s"]
	_, hasPickupEnd := col["pickup_time_window_end_s"]
	set := instance.OrderSet{HasWeights: hasWeight, HasPickupWindows: hasPickupStart && hasPickupEnd}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return instance.OrderSet{}, fmt.Errorf("csvfile: line %d: %w", line, err)
		}
		row := rowReader{rec: rec, col: col}
		o := instance.Order{
			ID:       row.str(idCol),
			Pickup:   geo.Point{X: row.float("pickup_lat"), Y: row.float("pickup_lon")},
			Delivery: geo.Point{X: row.float("delivery_lat"), Y: row.float("delivery_lon")},
			Items:    row.int("order_number_items"),
			Window:   instance.TimeWindow{Start: row.int("time_window_start_s"), End: row.int("time_window_end_s")},
		}
		if hasWeight {
			o.Weight = row.float("weight")
		}
		if set.HasPickupWindows {
			o.PickupWindow = instance.TimeWindow{Start: row.int("pickup_time_window_start_s"), End: row.int("pickup_time_window_end_s")}
		}
		if i, ok := col["bundle_id"]; ok {
			o.BundleID = row.str(i)
		}
		if row.err != nil {
			return instance.OrderSet{}, fmt.Errorf("csvfile: line %d: %w", line, row.err)
		}
		set.Orders = append(set.Orders, o)
	}
	if len(set.Orders) == 0 {
		return set, integrations.ErrEmptyBatch
	}
	set.NumCouriers = len(set.Orders)
	return set, nil
}

// rowReader keeps the first conversion error of a row.
type rowReader struct {
	rec []string
	col map[string]int
	err error
}

func (r *rowReader) str(i int) string {
	if i >= len(r.rec) {
		return ""
	}
	s := strings.TrimSpace(r.rec[i])
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

func (r *rowReader) float(name string) float64 {
	s := r.str(r.col[name])
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}

// int truncates toward zero so "3600.0" reads as 3600.
func (r *rowReader) int(name string) int64 {
	return int64(math.Trunc(r.float(name)))
}
