package geospatial_test

import (
	"math"
	"testing"

	"github.com/routesketch/routesketch/internal/pkg/geospatial"
)

func TestHaversine(t *testing.T) {
	// Bilbao Casco Viejo to San Mamés, roughly 2.6 km.
	d := geospatial.Haversine(43.2569, -2.9234, 43.2641, -2.9494)
	if d < 2200 || d > 2400 {
		t.Errorf("expected ~2.3km, got %.0fm", d)
	}
}

func TestHaversineZero(t *testing.T) {
	if d := geospatial.Haversine(43.26, -2.93, 43.26, -2.93); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestBearing(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{"due north", 0, 0, 1, 0, 0},
		{"due east", 0, 0, 0, 1, 90},
		{"due south", 1, 0, 0, 0, 180},
		{"due west", 0, 1, 0, 0, 270},
	}
	for _, tc := range cases {
		got := geospatial.Bearing(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
		if math.Abs(got-tc.want) > 0.5 {
			t.Errorf("%s: expected %.0f, got %.2f", tc.name, tc.want, got)
		}
	}
}

func TestBearingDiff(t *testing.T) {
	if d := geospatial.BearingDiff(10, 350); math.Abs(d-20) > 1e-9 {
		t.Errorf("wraparound diff: expected 20, got %f", d)
	}
	if d := geospatial.BearingDiff(0, 180); math.Abs(d-180) > 1e-9 {
		t.Errorf("opposite diff: expected 180, got %f", d)
	}
	if d := geospatial.BearingDiff(45, 45); d != 0 {
		t.Errorf("same bearing: expected 0, got %f", d)
	}
}
