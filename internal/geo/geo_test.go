package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{"Identical points", 55.0, 15.0, 55.0, 15.0, 0, 0},
		{"One degree of latitude at the equator", 0, 0, 1, 0, 111195, 50},
		{"One degree of longitude at the equator", 0, 0, 0, 1, 111195, 50},
		// Stockholm to Gothenburg, roughly 400 km.
		{"Stockholm-Gothenburg", 59.3293, 18.0686, 57.7089, 11.9746, 397000, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Haversine = %f, want %f (±%f)", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestHaversineSymmetric(t *testing.T) {
	a := Haversine(59.3293, 18.0686, 57.7089, 11.9746)
	b := Haversine(57.7089, 11.9746, 59.3293, 18.0686)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("Haversine not symmetric: %f vs %f", a, b)
	}
}

func TestHaversineMatchesArcLength(t *testing.T) {
	// For two points on the same meridian the distance is the arc
	// length of the latitude difference.
	got := Haversine(10, 25, 11, 25)
	want := EarthRadius * math.Pi / 180
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("Haversine = %f, want %f", got, want)
	}
}
