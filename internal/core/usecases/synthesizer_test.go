package usecases_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/routesketch/routesketch/internal/core/domain"
	"github.com/routesketch/routesketch/internal/core/usecases"
)

// capturePublisher records everything the pipeline publishes.
type capturePublisher struct {
	mu     sync.Mutex
	stages []domain.SynthesisStage
	routes []*domain.Route
}

func (c *capturePublisher) PublishRouteSynthesized(ctx context.Context, route *domain.Route) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes = append(c.routes, route)
	return nil
}

func (c *capturePublisher) PublishStageEvent(ctx context.Context, event *domain.StageEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages = append(c.stages, event.Stage)
	return nil
}

func (c *capturePublisher) PublishBroadcast(ctx context.Context, data []byte) error { return nil }

// octagonTrace draws a rough closed octagon on a 400x400 canvas: eight
// corners plus the repeated start.
func octagonTrace() []domain.PlanarPoint {
	const cx, cy, r = 200, 200, 150
	pts := make([]domain.PlanarPoint, 0, 9)
	for i := 0; i < 8; i++ {
		a := float64(i) * math.Pi / 4
		pts = append(pts, domain.PlanarPoint{
			X: cx + r*math.Cos(a),
			Y: cy + r*math.Sin(a),
		})
	}
	return append(pts, pts[0])
}

func fastSynthOptions() usecases.SynthesizerOptions {
	opts := usecases.DefaultSynthesizerOptions()
	opts.EdgeDelay = 0
	return opts
}

func octagonRequest() domain.SynthesisRequest {
	b := laBounds
	return domain.SynthesisRequest{
		Trace:         octagonTrace(),
		CanvasWidth:   400,
		CanvasHeight:  400,
		Bounds:        &b,
		Profile:       domain.ProfileWalking,
		PreserveShape: true,
	}
}

func TestSynthesizeOctagonEndToEnd(t *testing.T) {
	oracle := &fakeOracle{}
	pub := &capturePublisher{}
	s := usecases.NewSynthesizer(oracle, pub, fastSynthOptions())

	route, err := s.Synthesize(context.Background(), octagonRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route == nil || len(route.Points) < 2 {
		t.Fatalf("expected a usable route, got %+v", route)
	}

	inner := laBounds.Shrink(0.10)
	for i, p := range route.Points {
		if !inner.Contains(p) {
			t.Errorf("point %d (%v) escapes declared bounds", i, p)
		}
	}

	// A closed drawing must come back as a closed route.
	first, last := route.Points[0], route.Points[len(route.Points)-1]
	if math.Abs(first.Lat-last.Lat) > 1e-6 || math.Abs(first.Lon-last.Lon) > 1e-6 {
		t.Errorf("closed trace produced open route: %v ... %v", first, last)
	}

	if route.DistanceMeters <= 0 {
		t.Errorf("expected positive distance, got %f", route.DistanceMeters)
	}
	if oracle.routeCalls == 0 {
		t.Error("expected per-edge oracle calls")
	}
}

func TestSynthesizeStageOrder(t *testing.T) {
	pub := &capturePublisher{}
	s := usecases.NewSynthesizer(&fakeOracle{}, pub, fastSynthOptions())

	if _, err := s.Synthesize(context.Background(), octagonRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []domain.SynthesisStage{
		domain.StageSimplifying,
		domain.StageProjecting,
		domain.StageRouting,
		domain.StagePostProcessing,
		domain.StageDone,
	}
	if len(pub.stages) != len(want) {
		t.Fatalf("expected stages %v, got %v", want, pub.stages)
	}
	for i := range want {
		if pub.stages[i] != want[i] {
			t.Errorf("stage %d: expected %s, got %s", i, want[i], pub.stages[i])
		}
	}
	if len(pub.routes) != 1 {
		t.Errorf("expected 1 published route, got %d", len(pub.routes))
	}
}

func TestSynthesizeOracleDownStillReturnsRoute(t *testing.T) {
	oracle := &fakeOracle{fail: true}
	s := usecases.NewSynthesizer(oracle, nil, fastSynthOptions())

	route, err := s.Synthesize(context.Background(), octagonRequest())
	if err != nil {
		t.Fatalf("oracle outage must degrade, not fail: %v", err)
	}
	if route == nil || len(route.Points) < 2 {
		t.Fatalf("expected straight-line fallback route, got %+v", route)
	}
	inner := laBounds.Shrink(0.10)
	for i, p := range route.Points {
		if !inner.Contains(p) {
			t.Errorf("fallback point %d (%v) escapes bounds", i, p)
		}
	}
	// The consecutive-failure budget stops per-edge calls early.
	if oracle.routeCalls > len(octagonTrace()) {
		t.Errorf("failure budget not applied: %d oracle calls", oracle.routeCalls)
	}
}

func TestSynthesizeWholeRouteSingleCall(t *testing.T) {
	oracle := &fakeOracle{}
	s := usecases.NewSynthesizer(oracle, nil, fastSynthOptions())

	req := octagonRequest()
	req.PreserveShape = false

	route, err := s.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route == nil || len(route.Points) < 2 {
		t.Fatalf("expected a route, got %+v", route)
	}
	if oracle.routeCalls != 1 {
		t.Errorf("whole-route mode must issue exactly one routing call, got %d", oracle.routeCalls)
	}
}

func TestSynthesizeAnchoredProjection(t *testing.T) {
	anchor := domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}
	s := usecases.NewSynthesizer(&fakeOracle{}, nil, fastSynthOptions())

	req := domain.SynthesisRequest{
		Trace: []domain.PlanarPoint{
			{X: 50, Y: 50}, {X: 150, Y: 50}, {X: 250, Y: 50},
			{X: 250, Y: 150}, {X: 250, Y: 250},
		},
		CanvasWidth:   400,
		CanvasHeight:  400,
		Anchor:        &anchor,
		Profile:       domain.ProfileCycling,
		PreserveShape: true,
	}

	route, err := s.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.Points[0] != anchor {
		t.Errorf("anchored route must start on the anchor: %v", route.Points[0])
	}
	if route.Profile != domain.ProfileCycling {
		t.Errorf("profile lost: %s", route.Profile)
	}
}

func TestSynthesizeValidation(t *testing.T) {
	s := usecases.NewSynthesizer(&fakeOracle{}, nil, fastSynthOptions())
	b := laBounds
	badBounds := domain.Bounds{North: 33.95, South: 34.15, East: -118.35, West: -118.15}
	badAnchor := domain.GeoPoint{Lat: 95, Lon: 0}

	cases := []struct {
		name string
		req  domain.SynthesisRequest
		want error
	}{
		{
			name: "trace too short",
			req:  domain.SynthesisRequest{Trace: []domain.PlanarPoint{{X: 1, Y: 1}}, CanvasWidth: 400, CanvasHeight: 400, Bounds: &b},
			want: usecases.ErrTraceTooShort,
		},
		{
			name: "zero canvas",
			req:  domain.SynthesisRequest{Trace: octagonTrace(), Bounds: &b},
			want: usecases.ErrInvalidCanvas,
		},
		{
			name: "no projection target",
			req:  domain.SynthesisRequest{Trace: octagonTrace(), CanvasWidth: 400, CanvasHeight: 400},
			want: usecases.ErrNoProjection,
		},
		{
			name: "inverted bounds",
			req:  domain.SynthesisRequest{Trace: octagonTrace(), CanvasWidth: 400, CanvasHeight: 400, Bounds: &badBounds},
			want: usecases.ErrInvalidBounds,
		},
		{
			name: "anchor off the globe",
			req:  domain.SynthesisRequest{Trace: octagonTrace(), CanvasWidth: 400, CanvasHeight: 400, Anchor: &badAnchor},
			want: usecases.ErrInvalidAnchor,
		},
		{
			name: "unknown profile",
			req:  domain.SynthesisRequest{Trace: octagonTrace(), CanvasWidth: 400, CanvasHeight: 400, Bounds: &b, Profile: "rollerblade"},
			want: usecases.ErrInvalidProfile,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Synthesize(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSynthesizeCancellation(t *testing.T) {
	s := usecases.NewSynthesizer(&fakeOracle{}, nil, fastSynthOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Synthesize(ctx, octagonRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSynthesizeDefaultsProfile(t *testing.T) {
	s := usecases.NewSynthesizer(&fakeOracle{}, nil, fastSynthOptions())

	req := octagonRequest()
	req.Profile = ""

	route, err := s.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.Profile != domain.ProfileWalking {
		t.Errorf("empty profile must default to walking, got %s", route.Profile)
	}
}
