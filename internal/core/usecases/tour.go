package usecases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/routesketch/routesketch/internal/core/domain"
	"github.com/routesketch/routesketch/internal/core/ports"
	"github.com/routesketch/routesketch/internal/pkg/geospatial"
)

// pairKey identifies an unordered waypoint pair in the distance cache.
type pairKey struct{ lo, hi int }

func newPairKey(i, j int) pairKey {
	if i > j {
		i, j = j, i
	}
	return pairKey{i, j}
}

// TourOptimizer reorders waypoints to cut obviously wasteful back-and-forth
// travel. It runs a greedy nearest-neighbor construction over a lazily
// filled pairwise road-distance matrix; the result is a decent tour, not a
// provably minimal one.
type TourOptimizer struct {
	oracle ports.RoadOracle
	// CallDelay paces the O(n²) oracle calls used to fill the matrix.
	CallDelay time.Duration
}

// NewTourOptimizer creates a TourOptimizer backed by the given oracle.
func NewTourOptimizer(oracle ports.RoadOracle) *TourOptimizer {
	return &TourOptimizer{oracle: oracle, CallDelay: 50 * time.Millisecond}
}

// Optimize returns the input waypoints permuted into the visiting order
// discovered by the nearest-neighbor heuristic, starting from the first
// waypoint. Inputs with fewer than three points are returned unchanged.
// The output is always a permutation of the input.
func (t *TourOptimizer) Optimize(ctx context.Context, pts []domain.GeoPoint, profile domain.Profile) ([]domain.GeoPoint, error) {
	if len(pts) < 3 {
		return pts, nil
	}

	dist, err := t.distanceMatrix(ctx, pts, profile)
	if err != nil {
		return nil, err
	}

	n := len(pts)
	visited := make([]bool, n)
	order := make([]int, 0, n)

	current := 0
	visited[0] = true
	order = append(order, 0)

	for len(order) < n {
		next := -1
		best := 0.0
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			d := dist[newPairKey(current, j)]
			if next == -1 || d < best {
				next = j
				best = d
			}
		}
		visited[next] = true
		order = append(order, next)
		current = next
	}

	out := make([]domain.GeoPoint, n)
	for i, idx := range order {
		out[i] = pts[idx]
	}
	return out, nil
}

// distanceMatrix fills the symmetric pairwise road-distance cache (km).
// A failed oracle call for a pair falls back to the straight-line distance.
func (t *TourOptimizer) distanceMatrix(ctx context.Context, pts []domain.GeoPoint, profile domain.Profile) (map[pairKey]float64, error) {
	dist := make(map[pairKey]float64, len(pts)*(len(pts)-1)/2)

	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			key := newPairKey(i, j)
			if _, ok := dist[key]; ok {
				continue
			}

			d, err := t.pairDistanceKm(ctx, pts[i], pts[j], profile)
			if err != nil {
				return nil, err
			}
			dist[key] = d

			if t.CallDelay > 0 {
				select {
				case <-time.After(t.CallDelay):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}
	}
	return dist, nil
}

func (t *TourOptimizer) pairDistanceKm(ctx context.Context, a, b domain.GeoPoint, profile domain.Profile) (float64, error) {
	straight := geospatial.Haversine(a.Lat, a.Lon, b.Lat, b.Lon) / 1000

	cands, err := t.oracle.Route(ctx, []domain.GeoPoint{a, b}, profile, ports.RouteQuery{})
	if err != nil && !errors.Is(err, ports.ErrOracleUnavailable) {
		return 0, err
	}
	if len(cands) == 0 || cands[0].DistanceMeters <= 0 {
		if err != nil {
			slog.Warn("pair distance fell back to straight line", "error", err)
		}
		return straight, nil
	}
	return cands[0].DistanceMeters / 1000, nil
}
