// Package geo holds the distance metrics used to build routing matrices.
package geo

import (
	"fmt"
	"math"
	"strings"
)

const earthRadiusMeters = 6371000.0

// Point is a 2-D location. For geodesic metrics X is the latitude and Y the longitude.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Metric returns the travel distance between two points.
type Metric func(a, b Point) float64

// Euclidean is the planar distance truncated to whole units.
func Euclidean(a, b Point) float64 {
	return math.Trunc(math.Hypot(a.X-b.X, a.Y-b.Y))
}

// Haversine is the great-circle distance in meters.
func Haversine(a, b Point) float64 {
	dLat := (b.X - a.X) * math.Pi / 180
	dLon := (b.Y - a.Y) * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.X*math.Pi/180)*math.Cos(b.X*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return earthRadiusMeters * c
}

// MetricByName resolves "euclidean" or "haversine".
func MetricByName(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "euclidean", "planar":
		return Euclidean, nil
	case "", "haversine", "geodesic":
		return Haversine, nil
	}
	return nil, fmt.Errorf("unknown distance metric: %s", name)
}
