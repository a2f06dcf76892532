package usecases_test

import (
	"math"
	"testing"

	"github.com/routesketch/routesketch/internal/core/domain"
	"github.com/routesketch/routesketch/internal/core/usecases"
)

var laBounds = domain.Bounds{North: 34.15, South: 33.95, East: -118.15, West: -118.35}

func TestProjectIntoBoundsStaysInside(t *testing.T) {
	trace := []domain.PlanarPoint{
		{X: 0, Y: 0}, {X: 400, Y: 0}, {X: 400, Y: 400}, {X: 0, Y: 400}, {X: 0, Y: 0},
	}

	out := usecases.ProjectIntoBounds(trace, laBounds, 0.10)

	if len(out) != len(trace) {
		t.Fatalf("expected %d points, got %d", len(trace), len(out))
	}
	inner := laBounds.Shrink(0.10)
	for i, p := range out {
		if !inner.Contains(p) {
			t.Errorf("point %d (%v) escapes padded bounds %v", i, p, inner)
		}
	}
}

func TestProjectIntoBoundsPreservesAspectRatio(t *testing.T) {
	// A 2:1 rectangle must stay 2:1 after projection.
	trace := []domain.PlanarPoint{
		{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 200, Y: 100}, {X: 0, Y: 100},
	}

	out := usecases.ProjectIntoBounds(trace, laBounds, 0.10)

	minLat, maxLat := out[0].Lat, out[0].Lat
	minLon, maxLon := out[0].Lon, out[0].Lon
	for _, p := range out[1:] {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}

	ratio := (maxLon - minLon) / (maxLat - minLat)
	if math.Abs(ratio-2) > 1e-9 {
		t.Errorf("aspect ratio distorted: expected 2, got %f", ratio)
	}
}

func TestProjectIntoBoundsInvertsY(t *testing.T) {
	// Screen Y grows downward, so the top of the drawing gets the higher
	// latitude.
	trace := []domain.PlanarPoint{{X: 100, Y: 0}, {X: 100, Y: 400}}
	out := usecases.ProjectIntoBounds(trace, laBounds, 0.10)

	if out[0].Lat <= out[1].Lat {
		t.Errorf("Y axis not inverted: top=%f bottom=%f", out[0].Lat, out[1].Lat)
	}
}

func TestProjectFromAnchorFirstPointOnAnchor(t *testing.T) {
	anchor := domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}
	trace := []domain.PlanarPoint{{X: 50, Y: 80}, {X: 150, Y: 80}, {X: 150, Y: 180}}

	out := usecases.ProjectFromAnchor(trace, anchor, 0)

	if out[0] != anchor {
		t.Fatalf("first point must land on anchor: got %v", out[0])
	}
}

func TestProjectFromAnchorMeridianCorrection(t *testing.T) {
	// The same pixel offset must span more longitude at high latitude.
	trace := []domain.PlanarPoint{{X: 0, Y: 0}, {X: 100, Y: 0}}

	atEquator := usecases.ProjectFromAnchor(trace, domain.GeoPoint{Lat: 0, Lon: 0}, 1e-4)
	atHighLat := usecases.ProjectFromAnchor(trace, domain.GeoPoint{Lat: 60, Lon: 0}, 1e-4)

	eqSpan := atEquator[1].Lon - atEquator[0].Lon
	highSpan := atHighLat[1].Lon - atHighLat[0].Lon

	// cos(60°) = 0.5, so the high-latitude span is twice as wide.
	if math.Abs(highSpan/eqSpan-2) > 1e-6 {
		t.Errorf("expected 2x longitude span at 60°N, got %fx", highSpan/eqSpan)
	}
}

func TestProjectEmptyTrace(t *testing.T) {
	if out := usecases.ProjectIntoBounds(nil, laBounds, 0.10); out != nil {
		t.Errorf("expected nil for empty trace, got %v", out)
	}
	if out := usecases.ProjectFromAnchor(nil, domain.GeoPoint{}, 0); out != nil {
		t.Errorf("expected nil for empty trace, got %v", out)
	}
}
