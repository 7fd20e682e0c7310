package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
		tolerance              float64
	}{
		{
			name: "same point",
			lat1: 41.0082, lng1: 28.9784,
			lat2: 41.0082, lng2: 28.9784,
			want: 0, tolerance: 0.001,
		},
		{
			name: "sultanahmet to hagia sophia",
			lat1: 41.0054, lng1: 28.9768,
			lat2: 41.0086, lng2: 28.9802,
			want: 454, tolerance: 10,
		},
		{
			name: "istanbul to ankara",
			lat1: 41.0082, lng1: 28.9784,
			lat2: 39.9334, lng2: 32.8597,
			want: 350000, tolerance: 5000,
		},
		{
			name: "one degree of latitude",
			lat1: 0, lng1: 0,
			lat2: 1, lng2: 0,
			want: 111195, tolerance: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			assert.InDelta(t, tt.want, got, tt.tolerance)
		})
	}
}

func TestDistanceMetersSymmetric(t *testing.T) {
	ab := DistanceMeters(41.0054, 28.9768, 41.0086, 28.9802)
	ba := DistanceMeters(41.0086, 28.9802, 41.0054, 28.9768)
	assert.InDelta(t, ab, ba, 0.000001)
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(41.0082, 28.9784))
	assert.True(t, ValidCoordinate(-90, 180))
	assert.False(t, ValidCoordinate(90.1, 0))
	assert.False(t, ValidCoordinate(0, -180.5))
}
