package usecases_test

import (
	"context"
	"sync"
	"testing"

	"github.com/routesketch/routesketch/internal/core/domain"
	"github.com/routesketch/routesketch/internal/core/ports"
	"github.com/routesketch/routesketch/internal/core/usecases"
	"github.com/routesketch/routesketch/internal/pkg/geospatial"
)

// --- Fake road oracle ---

// fakeOracle answers every query with straight-line geometry. With fail set
// it mimics an unreachable oracle: degraded results + ErrOracleUnavailable.
type fakeOracle struct {
	mu           sync.Mutex
	fail         bool
	nearestCalls int
	routeCalls   int
	routeFn      func(wps []domain.GeoPoint, q ports.RouteQuery) ([]domain.RouteCandidate, error)
}

func (f *fakeOracle) Nearest(ctx context.Context, pt domain.GeoPoint, profile domain.Profile) (domain.GeoPoint, error) {
	f.mu.Lock()
	f.nearestCalls++
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return pt, ports.ErrOracleUnavailable
	}
	return pt, nil
}

func (f *fakeOracle) NearestBatch(ctx context.Context, pts []domain.GeoPoint, profile domain.Profile) ([]domain.GeoPoint, error) {
	out := make([]domain.GeoPoint, len(pts))
	var firstErr error
	for i, p := range pts {
		snapped, err := f.Nearest(ctx, p, profile)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		out[i] = snapped
	}
	return out, firstErr
}

func (f *fakeOracle) Route(ctx context.Context, wps []domain.GeoPoint, profile domain.Profile, q ports.RouteQuery) ([]domain.RouteCandidate, error) {
	f.mu.Lock()
	f.routeCalls++
	fail := f.fail
	fn := f.routeFn
	f.mu.Unlock()

	if fn != nil {
		return fn(wps, q)
	}

	cand := straightLineCandidate(wps)
	if fail {
		return []domain.RouteCandidate{cand}, ports.ErrOracleUnavailable
	}
	return []domain.RouteCandidate{cand}, nil
}

func straightLineCandidate(wps []domain.GeoPoint) domain.RouteCandidate {
	var meters float64
	for i := 1; i < len(wps); i++ {
		meters += geospatial.Haversine(wps[i-1].Lat, wps[i-1].Lon, wps[i].Lat, wps[i].Lon)
	}
	pts := make([]domain.GeoPoint, len(wps))
	copy(pts, wps)
	return domain.RouteCandidate{Points: pts, DistanceMeters: meters}
}

// --- Tests ---

func TestTourOptimizerIsPermutation(t *testing.T) {
	opt := usecases.NewTourOptimizer(&fakeOracle{})
	opt.CallDelay = 0

	in := []domain.GeoPoint{
		geo(34.05, -118.25),
		geo(34.09, -118.25),
		geo(34.06, -118.25),
		geo(34.08, -118.25),
		geo(34.07, -118.25),
	}

	out, err := opt.Optimize(context.Background(), in, domain.ProfileWalking)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d points, got %d", len(in), len(out))
	}

	counts := make(map[domain.GeoPoint]int)
	for _, p := range in {
		counts[p]++
	}
	for _, p := range out {
		counts[p]--
	}
	for p, c := range counts {
		if c != 0 {
			t.Errorf("point %v count off by %d: not a permutation", p, c)
		}
	}
}

func TestTourOptimizerReducesZigzag(t *testing.T) {
	opt := usecases.NewTourOptimizer(&fakeOracle{})
	opt.CallDelay = 0

	// Deliberately wasteful order along one street: 0, 4, 1, 3, 2 km north.
	in := []domain.GeoPoint{
		geo(34.05, -118.25),
		geo(34.09, -118.25),
		geo(34.06, -118.25),
		geo(34.08, -118.25),
		geo(34.07, -118.25),
	}

	out, err := opt.Optimize(context.Background(), in, domain.ProfileWalking)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Nearest-neighbor from the first point walks straight north.
	for i := 1; i < len(out); i++ {
		if out[i].Lat <= out[i-1].Lat {
			t.Fatalf("order not monotonic at %d: %v", i, out)
		}
	}

	if tourLength(out) >= tourLength(in) {
		t.Errorf("optimized tour (%f) not shorter than input (%f)", tourLength(out), tourLength(in))
	}
}

func TestTourOptimizerShortInputUnchanged(t *testing.T) {
	oracle := &fakeOracle{}
	opt := usecases.NewTourOptimizer(oracle)
	opt.CallDelay = 0

	in := []domain.GeoPoint{geo(34.05, -118.25), geo(34.06, -118.25)}
	out, err := opt.Optimize(context.Background(), in, domain.ProfileWalking)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("two points must pass through unchanged: %v", out)
	}
	if oracle.routeCalls != 0 {
		t.Errorf("no oracle calls expected for 2 points, got %d", oracle.routeCalls)
	}
}

func TestTourOptimizerOracleFailureFallsBack(t *testing.T) {
	opt := usecases.NewTourOptimizer(&fakeOracle{fail: true})
	opt.CallDelay = 0

	in := []domain.GeoPoint{
		geo(34.05, -118.25),
		geo(34.07, -118.25),
		geo(34.06, -118.25),
	}

	out, err := opt.Optimize(context.Background(), in, domain.ProfileWalking)
	if err != nil {
		t.Fatalf("oracle failure must not surface: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d points, got %d", len(in), len(out))
	}
}

func TestTourOptimizerCancellation(t *testing.T) {
	opt := usecases.NewTourOptimizer(&fakeOracle{})
	opt.CallDelay = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := opt.Optimize(ctx, []domain.GeoPoint{
		geo(34.05, -118.25), geo(34.06, -118.25), geo(34.07, -118.25),
	}, domain.ProfileWalking)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func tourLength(pts []domain.GeoPoint) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += geospatial.Haversine(pts[i-1].Lat, pts[i-1].Lon, pts[i].Lat, pts[i].Lon)
	}
	return total
}
