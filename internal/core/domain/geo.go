package domain

// PlanarPoint is a pixel-space coordinate captured from the drawing canvas.
// It only exists while a trace is being simplified and projected.
type PlanarPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies inside the WGS 84 coordinate range.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Bounds is a geographic bounding box a drawing is projected into.
// North must exceed South and East must exceed West.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Valid reports whether the box is well-formed.
func (b Bounds) Valid() bool {
	return b.North > b.South && b.East > b.West
}

// Center returns the middle of the box.
func (b Bounds) Center() GeoPoint {
	return GeoPoint{
		Lat: (b.North + b.South) / 2,
		Lon: (b.East + b.West) / 2,
	}
}

// Contains reports whether the point lies inside the box (inclusive).
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat <= b.North && p.Lat >= b.South && p.Lon <= b.East && p.Lon >= b.West
}

// Shrink returns the box with a padding fraction removed from each side,
// e.g. Shrink(0.1) keeps the central 80% of each axis.
func (b Bounds) Shrink(fraction float64) Bounds {
	latPad := (b.North - b.South) * fraction
	lonPad := (b.East - b.West) * fraction
	return Bounds{
		North: b.North - latPad,
		South: b.South + latPad,
		East:  b.East - lonPad,
		West:  b.West + lonPad,
	}
}
