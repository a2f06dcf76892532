package usecases

import (
	"math"
	"sort"

	"github.com/routesketch/routesketch/internal/core/domain"
)

// SimplifyOptions bounds the output of the trace simplifier.
type SimplifyOptions struct {
	MinPoints      int
	MaxPoints      int
	MinPixelDist   float64
	PreserveCurves bool
}

// DefaultSimplifyOptions returns the tuning used for a typical phone canvas.
func DefaultSimplifyOptions() SimplifyOptions {
	return SimplifyOptions{
		MinPoints:    4,
		MaxPoints:    25,
		MinPixelDist: 8,
	}
}

func (o SimplifyOptions) normalized() SimplifyOptions {
	if o.MinPoints <= 0 {
		o.MinPoints = 4
	}
	if o.MaxPoints < o.MinPoints {
		o.MaxPoints = 25
	}
	if o.MinPixelDist <= 0 {
		o.MinPixelDist = 8
	}
	return o
}

// SimplifyTrace reduces a dense freehand trace to at most opts.MaxPoints
// waypoints while keeping the drawn shape recognizable. Traces at or below
// opts.MinPoints are returned unchanged. The first and last points always
// survive.
func SimplifyTrace(trace []domain.PlanarPoint, opts SimplifyOptions) []domain.PlanarPoint {
	opts = opts.normalized()

	if len(trace) <= opts.MinPoints {
		return trace
	}

	pts := distanceFilter(trace, opts.MinPixelDist)

	// A light tolerance pass removes colinear runs even when the count
	// already fits the budget.
	tolerance := 0.01 * bboxDiagonal(pts)
	pts = simplifyPath(pts, tolerance)

	if len(pts) <= opts.MaxPoints {
		if len(pts) < opts.MinPoints {
			return topUp(trace, pts, opts.MinPoints)
		}
		return pts
	}

	if opts.PreserveCurves {
		return keepSharpest(pts, opts.MaxPoints)
	}

	// Stronger simplification, then an even resample if still over budget.
	pts = simplifyPath(pts, tolerance*3)
	if len(pts) > opts.MaxPoints {
		pts = resampleEven(pts, opts.MaxPoints)
	}
	if len(pts) < opts.MinPoints {
		return topUp(trace, pts, opts.MinPoints)
	}
	return pts
}

// distanceFilter drops points closer than minDist pixels to the last kept
// point. Endpoints are always kept.
func distanceFilter(trace []domain.PlanarPoint, minDist float64) []domain.PlanarPoint {
	out := []domain.PlanarPoint{trace[0]}
	for i := 1; i < len(trace)-1; i++ {
		if planarDist(out[len(out)-1], trace[i]) >= minDist {
			out = append(out, trace[i])
		}
	}
	return append(out, trace[len(trace)-1])
}

// simplifyPath is the iterative endpoint-fit (Ramer-Douglas-Peucker)
// algorithm: keep the point farthest from the chord between the endpoints
// when it exceeds the tolerance, and recurse on both halves.
func simplifyPath(pts []domain.PlanarPoint, tolerance float64) []domain.PlanarPoint {
	if len(pts) <= 2 {
		return pts
	}

	idx, maxDist := farthestFromChord(pts)
	if maxDist > tolerance {
		left := simplifyPath(pts[:idx+1], tolerance)
		right := simplifyPath(pts[idx:], tolerance)
		return append(left[:len(left)-1], right...)
	}

	return []domain.PlanarPoint{pts[0], pts[len(pts)-1]}
}

func farthestFromChord(pts []domain.PlanarPoint) (idx int, maxDist float64) {
	a, b := pts[0], pts[len(pts)-1]
	for i := 1; i < len(pts)-1; i++ {
		if d := perpendicularDist(pts[i], a, b); d > maxDist {
			maxDist = d
			idx = i
		}
	}
	return idx, maxDist
}

// perpendicularDist returns the distance from p to the line through a and b.
// Degenerates to point distance when a == b.
func perpendicularDist(p, a, b domain.PlanarPoint) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	norm := math.Hypot(dx, dy)
	if norm == 0 {
		return planarDist(p, a)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / norm
}

// keepSharpest keeps the endpoints plus the interior points with the
// smallest turn angles (sharpest corners) until the budget is reached,
// back-filling leftover budget with evenly spaced points.
func keepSharpest(pts []domain.PlanarPoint, maxPoints int) []domain.PlanarPoint {
	type scored struct {
		idx   int
		angle float64 // degrees; 180 = perfectly straight
	}

	interior := make([]scored, 0, len(pts)-2)
	for i := 1; i < len(pts)-1; i++ {
		interior = append(interior, scored{i, turnAngle(pts[i-1], pts[i], pts[i+1])})
	}
	sort.Slice(interior, func(i, j int) bool {
		return interior[i].angle < interior[j].angle
	})

	keep := map[int]bool{0: true, len(pts) - 1: true}
	budget := maxPoints - 2
	for _, s := range interior {
		if budget == 0 {
			break
		}
		keep[s.idx] = true
		budget--
	}

	// Back-fill remaining budget with evenly spaced unselected points.
	if budget > 0 {
		var rest []int
		for i := 1; i < len(pts)-1; i++ {
			if !keep[i] {
				rest = append(rest, i)
			}
		}
		step := float64(len(rest)) / float64(budget)
		for i := 0; i < budget && len(rest) > 0; i++ {
			pos := int(float64(i) * step)
			if pos >= len(rest) {
				pos = len(rest) - 1
			}
			keep[rest[pos]] = true
		}
	}

	out := make([]domain.PlanarPoint, 0, maxPoints)
	for i, p := range pts {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// turnAngle returns the angle at b formed by segments a→b and b→c, in
// degrees. 180 means the three points are colinear.
func turnAngle(a, b, c domain.PlanarPoint) float64 {
	v1x, v1y := a.X-b.X, a.Y-b.Y
	v2x, v2y := c.X-b.X, c.Y-b.Y

	n1 := math.Hypot(v1x, v1y)
	n2 := math.Hypot(v2x, v2y)
	if n1 == 0 || n2 == 0 {
		return 180
	}

	cos := (v1x*v2x + v1y*v2y) / (n1 * n2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// resampleEven picks exactly n points spread evenly along the slice,
// keeping the endpoints.
func resampleEven(pts []domain.PlanarPoint, n int) []domain.PlanarPoint {
	if len(pts) <= n {
		return pts
	}
	out := make([]domain.PlanarPoint, 0, n)
	step := float64(len(pts)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, pts[int(math.Round(float64(i)*step))])
	}
	return out
}

// topUp re-adds original trace points when simplification undershot the
// minimum, preserving trace order.
func topUp(trace, kept []domain.PlanarPoint, minPoints int) []domain.PlanarPoint {
	if len(kept) >= minPoints {
		return kept
	}
	have := make(map[domain.PlanarPoint]bool, len(kept))
	for _, p := range kept {
		have[p] = true
	}

	want := minPoints - len(kept)
	step := float64(len(trace)) / float64(want+1)
	added := 0
	for i := 1; i <= want; i++ {
		p := trace[int(float64(i)*step)]
		if !have[p] {
			have[p] = true
			added++
		}
	}
	// Evenly spaced candidates may already be kept; fill the remainder by
	// scanning the trace.
	for i := 0; i < len(trace) && added < want; i++ {
		if !have[trace[i]] {
			have[trace[i]] = true
			added++
		}
	}

	out := make([]domain.PlanarPoint, 0, minPoints)
	for _, p := range trace {
		if have[p] {
			out = append(out, p)
			delete(have, p)
		}
	}
	return out
}

func bboxDiagonal(pts []domain.PlanarPoint) float64 {
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return math.Hypot(maxX-minX, maxY-minY)
}

func planarDist(a, b domain.PlanarPoint) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
