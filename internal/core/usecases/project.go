package usecases

import (
	"math"

	"github.com/routesketch/routesketch/internal/core/domain"
)

// DefaultDegreesPerPixel places a 400px canvas across a few kilometers in
// anchored projection mode.
const DefaultDegreesPerPixel = 1.1e-4

// DefaultBoundsPadding keeps the projected shape off the edges of the
// target box (fraction per side).
const DefaultBoundsPadding = 0.10

// ProjectIntoBounds fits a planar trace into a geographic bounding box.
// The trace keeps its aspect ratio (a single uniform scale factor is used)
// and is centered on the box center. Screen Y grows downward, latitude grows
// upward, so the vertical axis is inverted. No output point leaves the
// padded box.
func ProjectIntoBounds(trace []domain.PlanarPoint, bounds domain.Bounds, padding float64) []domain.GeoPoint {
	if len(trace) == 0 {
		return nil
	}
	if padding < 0 || padding >= 0.5 {
		padding = DefaultBoundsPadding
	}

	minX, minY := trace[0].X, trace[0].Y
	maxX, maxY := minX, minY
	for _, p := range trace[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	inner := bounds.Shrink(padding)
	spanLat := inner.North - inner.South
	spanLon := inner.East - inner.West

	width := maxX - minX
	height := maxY - minY

	// Uniform scale so the drawing never exceeds the padded box. A drawing
	// with zero extent on an axis degenerates to the box center.
	scale := math.Inf(1)
	if width > 0 {
		scale = spanLon / width
	}
	if height > 0 {
		scale = math.Min(scale, spanLat/height)
	}
	if math.IsInf(scale, 1) {
		scale = 0
	}

	cx := (minX + maxX) / 2
	cy := (minY + maxY) / 2
	center := bounds.Center()

	out := make([]domain.GeoPoint, len(trace))
	for i, p := range trace {
		out[i] = domain.GeoPoint{
			Lat: center.Lat - (p.Y-cy)*scale, // inverted Y
			Lon: center.Lon + (p.X-cx)*scale,
		}
	}
	return out
}

// ProjectFromAnchor places a planar trace on the map so the first trace
// point lands exactly on the anchor, with the rest offset by a fixed
// degrees-per-pixel scale. Longitude offsets are widened by 1/cos(lat) so
// the drawn shape keeps its proportions away from the equator.
func ProjectFromAnchor(trace []domain.PlanarPoint, anchor domain.GeoPoint, degPerPixel float64) []domain.GeoPoint {
	if len(trace) == 0 {
		return nil
	}
	if degPerPixel <= 0 {
		degPerPixel = DefaultDegreesPerPixel
	}

	lonCorrection := math.Cos(anchor.Lat * math.Pi / 180)
	if lonCorrection == 0 {
		lonCorrection = 1 // poles; degenerate but defined
	}

	origin := trace[0]
	out := make([]domain.GeoPoint, len(trace))
	for i, p := range trace {
		out[i] = domain.GeoPoint{
			Lat: anchor.Lat - (p.Y-origin.Y)*degPerPixel,
			Lon: anchor.Lon + (p.X-origin.X)*degPerPixel/lonCorrection,
		}
	}
	return out
}
