package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEuclideanTruncates(t *testing.T) {
	assert.Equal(t, 5.0, Euclidean(Point{0, 0}, Point{3, 4}))
	assert.Equal(t, 1.0, Euclidean(Point{0, 0}, Point{1, 1}))
	assert.Equal(t, 0.0, Euclidean(Point{2, 2}, Point{2, 2}))
}

func TestHaversineOneDegreeLatitude(t *testing.T) {
	d := Haversine(Point{52.0, 4.0}, Point{53.0, 4.0})
	assert.InDelta(t, 111195, d, 10)
	assert.InDelta(t, d, Haversine(Point{53.0, 4.0}, Point{52.0, 4.0}), 1e-6)
}

func TestMetricByName(t *testing.T) {
	m, err := MetricByName("Euclidean")
	require.NoError(t, err)
	assert.Equal(t, 5.0, m(Point{0, 0}, Point{3, 4}))

	_, err = MetricByName("manhattan")
	require.Error(t, err)
}
