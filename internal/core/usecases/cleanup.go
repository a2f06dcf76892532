package usecases

import (
	"math"

	"github.com/routesketch/routesketch/internal/core/domain"
	"github.com/routesketch/routesketch/internal/pkg/geospatial"
)

// CleanupOptions holds the post-processing tuning surface. The loop
// progress tolerance and backtrack band are field-tuned heuristics; treat
// them as adjustable, not proven.
type CleanupOptions struct {
	// DuplicateEpsilon collapses consecutive points whose lat and lon both
	// differ by less than this (degrees). 1e-5 is roughly one meter.
	DuplicateEpsilon float64
	// LoopGridDegrees is the rounding granularity used to recognize a
	// revisited location. 1e-3 is roughly 111 meters.
	LoopGridDegrees float64
	// LoopProgressTolerance is the fraction of remaining distance to the
	// destination a detour must gain to survive the loop merge.
	LoopProgressTolerance float64
	// BacktrackBandDegrees drops interior points whose incoming/outgoing
	// bearings differ by 180° ± this band.
	BacktrackBandDegrees float64
}

// DefaultCleanupOptions returns the default post-processing thresholds.
func DefaultCleanupOptions() CleanupOptions {
	return CleanupOptions{
		DuplicateEpsilon:      1e-5,
		LoopGridDegrees:       1e-3,
		LoopProgressTolerance: 0.05,
		BacktrackBandDegrees:  20,
	}
}

// CleanRoute applies the three cleanup passes in order: duplicate collapse,
// redundant-loop merge, backtrack removal. Each pass keeps the sequence
// endpoints; a pass that would leave fewer than two points is skipped and
// its input kept.
func CleanRoute(pts []domain.GeoPoint, opts CleanupOptions) []domain.GeoPoint {
	if len(pts) < 2 {
		return pts
	}

	pts = keepIfViable(pts, collapseDuplicates(pts, opts.DuplicateEpsilon))
	pts = keepIfViable(pts, mergeLoops(pts, opts))
	pts = keepIfViable(pts, removeBacktracks(pts, opts.BacktrackBandDegrees))
	return pts
}

func keepIfViable(before, after []domain.GeoPoint) []domain.GeoPoint {
	if len(after) < 2 {
		return before
	}
	return after
}

// collapseDuplicates drops a point when both coordinates are within eps of
// the previously kept point. Idempotent: a second run is a no-op.
func collapseDuplicates(pts []domain.GeoPoint, eps float64) []domain.GeoPoint {
	if eps <= 0 {
		eps = 1e-5
	}
	out := pts[:1:1]
	for _, p := range pts[1:] {
		prev := out[len(out)-1]
		if math.Abs(p.Lat-prev.Lat) < eps && math.Abs(p.Lon-prev.Lon) < eps {
			continue
		}
		out = append(out, p)
	}
	return out
}

// loopCell is a grid-rounded coordinate used to recognize revisits.
type loopCell struct{ lat, lon int64 }

func cellOf(p domain.GeoPoint, grid float64) loopCell {
	return loopCell{
		lat: int64(math.Round(p.Lat / grid)),
		lon: int64(math.Round(p.Lon / grid)),
	}
}

// mergeLoops removes "there and back" detours: when the path revisits a
// grid cell it already emitted and the intervening travel has not brought
// it meaningfully closer to the final destination, the result is truncated
// back to the first occurrence. Modeled as a fold carrying the cell→index
// map alongside the result buffer so truncation stays local.
func mergeLoops(pts []domain.GeoPoint, opts CleanupOptions) []domain.GeoPoint {
	if len(pts) < 3 {
		return pts
	}
	grid := opts.LoopGridDegrees
	if grid <= 0 {
		grid = 1e-3
	}

	dest := pts[len(pts)-1]

	result := make([]domain.GeoPoint, 0, len(pts))
	seen := make(map[loopCell]int, len(pts))

	appendPoint := func(p domain.GeoPoint) {
		seen[cellOf(p, grid)] = len(result)
		result = append(result, p)
	}

	appendPoint(pts[0])

	for i := 1; i < len(pts); i++ {
		p := pts[i]

		// Immediate A→B→A cycle: drop the middle point.
		if len(result) >= 2 {
			if cellOf(p, grid) == cellOf(result[len(result)-2], grid) {
				result = result[:len(result)-1]
				rebuildIndex(seen, result, grid)
				continue
			}
		}

		prior, revisit := seen[cellOf(p, grid)]
		if !revisit || prior >= len(result) {
			appendPoint(p)
			continue
		}

		// Progress check: distance to destination at the prior occurrence
		// vs. now. The detour survives only if it gained more than the
		// tolerance fraction.
		wasRemaining := geospatial.Haversine(result[prior].Lat, result[prior].Lon, dest.Lat, dest.Lon)
		nowRemaining := geospatial.Haversine(p.Lat, p.Lon, dest.Lat, dest.Lon)

		if nowRemaining >= wasRemaining*(1-opts.LoopProgressTolerance) {
			// No real progress: cut the loop out.
			result = result[:prior+1]
			rebuildIndex(seen, result, grid)
			continue
		}

		appendPoint(p)
	}

	// The original endpoint must survive truncation.
	if len(result) > 0 && result[len(result)-1] != dest {
		result = append(result, dest)
	}
	return result
}

func rebuildIndex(seen map[loopCell]int, result []domain.GeoPoint, grid float64) {
	for k := range seen {
		delete(seen, k)
	}
	for i, p := range result {
		seen[cellOf(p, grid)] = i
	}
}

// removeBacktracks drops interior points whose incoming and outgoing edges
// point in nearly opposite directions.
func removeBacktracks(pts []domain.GeoPoint, bandDeg float64) []domain.GeoPoint {
	if len(pts) < 3 {
		return pts
	}
	if bandDeg <= 0 {
		bandDeg = 20
	}

	out := pts[:1:1]
	for i := 1; i < len(pts)-1; i++ {
		prev := out[len(out)-1]
		in := geospatial.Bearing(prev.Lat, prev.Lon, pts[i].Lat, pts[i].Lon)
		outgoing := geospatial.Bearing(pts[i].Lat, pts[i].Lon, pts[i+1].Lat, pts[i+1].Lon)

		if geospatial.BearingDiff(in, outgoing) >= 180-bandDeg {
			continue // doubling back, not progressing
		}
		out = append(out, pts[i])
	}
	return append(out, pts[len(pts)-1])
}
