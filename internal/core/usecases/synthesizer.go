package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/routesketch/routesketch/internal/core/domain"
	"github.com/routesketch/routesketch/internal/core/ports"
	"github.com/routesketch/routesketch/internal/pkg/metrics"
)

// Input validation errors. These are the only errors a caller sees for a
// reachable oracle; everything downstream degrades instead of failing.
var (
	ErrTraceTooShort  = errors.New("trace must contain at least 2 points")
	ErrInvalidCanvas  = errors.New("canvas dimensions must be positive")
	ErrNoProjection   = errors.New("either bounds or anchor must be set")
	ErrInvalidBounds  = errors.New("bounds must satisfy north > south and east > west")
	ErrInvalidAnchor  = errors.New("anchor must be a valid WGS 84 coordinate")
	ErrInvalidProfile = errors.New("unknown routing profile")
)

// SynthesizerOptions carries the orchestrator's tuning values.
type SynthesizerOptions struct {
	Simplify SimplifyOptions
	Score    ScoreOptions
	Cleanup  CleanupOptions
	// EdgeDelay paces per-edge oracle calls.
	EdgeDelay time.Duration
	// MaxSegmentFailures is the consecutive-failure budget before the
	// remaining edges fall back to straight lines.
	MaxSegmentFailures int
	// ClosedShapeTolerance decides whether a trace is a closed loop, as a
	// fraction of the canvas diagonal separating first and last point.
	ClosedShapeTolerance float64
}

// DefaultSynthesizerOptions returns production defaults.
func DefaultSynthesizerOptions() SynthesizerOptions {
	return SynthesizerOptions{
		Simplify:             DefaultSimplifyOptions(),
		Score:                DefaultScoreOptions(),
		Cleanup:              DefaultCleanupOptions(),
		EdgeDelay:            150 * time.Millisecond,
		MaxSegmentFailures:   3,
		ClosedShapeTolerance: 0.05,
	}
}

// Synthesizer runs the freehand-to-road pipeline:
// simplify → project → (optional tour) → per-edge routing → cleanup.
// It is stateless across calls; only the oracle's snap cache persists.
type Synthesizer struct {
	oracle    ports.RoadOracle
	tour      *TourOptimizer
	publisher ports.EventPublisher // may be nil
	opts      SynthesizerOptions
	tracer    trace.Tracer
}

// NewSynthesizer wires the pipeline. publisher may be nil when no broker is
// configured.
func NewSynthesizer(oracle ports.RoadOracle, publisher ports.EventPublisher, opts SynthesizerOptions) *Synthesizer {
	return &Synthesizer{
		oracle:    oracle,
		tour:      NewTourOptimizer(oracle),
		publisher: publisher,
		opts:      opts,
		tracer:    otel.Tracer("routesketch/synthesis"),
	}
}

// Synthesize turns a freehand trace into a street-aligned route. Given
// valid input it always returns a route, falling back to straight-line
// geometry when the oracle is unreachable; only invalid input or context
// cancellation produce an error.
func (s *Synthesizer) Synthesize(ctx context.Context, req domain.SynthesisRequest) (*domain.Route, error) {
	if err := validateRequest(&req); err != nil {
		metrics.SynthesisRuns.WithLabelValues("invalid_input").Inc()
		return nil, err
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "synthesize",
		trace.WithAttributes(
			attribute.String("profile", string(req.Profile)),
			attribute.Int("trace_points", len(req.Trace)),
			attribute.Bool("preserve_shape", req.PreserveShape),
		))
	defer span.End()

	// Simplifying
	s.stage(ctx, domain.StageSimplifying, 0)
	simplifyOpts := s.opts.Simplify
	if req.MinPoints > 0 {
		simplifyOpts.MinPoints = req.MinPoints
	}
	if req.MaxPoints > 0 {
		simplifyOpts.MaxPoints = req.MaxPoints
	}
	simplifyOpts.PreserveCurves = req.PreserveCurves
	simplified := SimplifyTrace(req.Trace, simplifyOpts)

	closed := s.isClosedTrace(req.Trace, req.CanvasWidth, req.CanvasHeight)

	// Projecting
	s.stage(ctx, domain.StageProjecting, len(simplified))
	var waypoints []domain.GeoPoint
	if req.Bounds != nil {
		waypoints = ProjectIntoBounds(simplified, *req.Bounds, DefaultBoundsPadding)
	} else {
		waypoints = ProjectFromAnchor(simplified, *req.Anchor, req.DegreesPerPixel)
	}

	// Snap waypoints onto the road network before routing between them.
	snapped, err := s.oracle.NearestBatch(ctx, waypoints, req.Profile)
	if err == nil || errors.Is(err, ports.ErrOracleUnavailable) {
		if len(snapped) == len(waypoints) {
			waypoints = snapped
		}
	} else {
		return nil, err
	}

	if len(waypoints) < 2 {
		// Degenerate but not an error: hand back what we projected.
		metrics.SynthesisRuns.WithLabelValues("degenerate").Inc()
		return s.finish(ctx, req, waypoints, start), nil
	}

	// Optimizing (optional)
	if req.OptimizeOrder && len(waypoints) >= 3 {
		s.stage(ctx, domain.StageOptimizing, len(waypoints))
		ordered, err := s.tour.Optimize(ctx, waypoints, req.Profile)
		if err != nil {
			return nil, err
		}
		waypoints = ordered
	}

	// RoutingSegments
	s.stage(ctx, domain.StageRouting, len(waypoints))
	var path []domain.GeoPoint
	if req.PreserveShape {
		path, err = s.routeEdges(ctx, waypoints, closed, req)
	} else {
		path, err = s.routeWhole(ctx, waypoints, req)
	}
	if err != nil {
		s.stage(ctx, domain.StageFailed, 0)
		metrics.SynthesisRuns.WithLabelValues("cancelled").Inc()
		return nil, err
	}

	// PostProcessing
	s.stage(ctx, domain.StagePostProcessing, len(path))
	path = CleanRoute(path, s.opts.Cleanup)

	route := s.finish(ctx, req, path, start)
	metrics.SynthesisRuns.WithLabelValues("ok").Inc()
	return route, nil
}

func validateRequest(req *domain.SynthesisRequest) error {
	if len(req.Trace) < 2 {
		return ErrTraceTooShort
	}
	if req.CanvasWidth <= 0 || req.CanvasHeight <= 0 {
		return ErrInvalidCanvas
	}
	if req.Profile == "" {
		req.Profile = domain.ProfileWalking
	}
	if !req.Profile.Valid() {
		return ErrInvalidProfile
	}
	switch {
	case req.Bounds != nil:
		if !req.Bounds.Valid() {
			return ErrInvalidBounds
		}
	case req.Anchor != nil:
		if !req.Anchor.Valid() {
			return ErrInvalidAnchor
		}
	default:
		return ErrNoProjection
	}
	return nil
}

// isClosedTrace reports whether the drawing ends close to where it began,
// relative to the canvas size.
func (s *Synthesizer) isClosedTrace(trace []domain.PlanarPoint, w, h float64) bool {
	first, last := trace[0], trace[len(trace)-1]
	diag := planarDist(domain.PlanarPoint{X: 0, Y: 0}, domain.PlanarPoint{X: w, Y: h})
	return planarDist(first, last) <= diag*s.opts.ClosedShapeTolerance
}

// routeEdges routes each consecutive waypoint pair separately so the final
// geometry tracks the drawn shape, concatenating the per-edge winners and
// skipping the duplicated join point. Closed shapes get the wraparound
// edge. After MaxSegmentFailures consecutive soft failures the remaining
// edges become straight lines.
func (s *Synthesizer) routeEdges(ctx context.Context, waypoints []domain.GeoPoint, closed bool, req domain.SynthesisRequest) ([]domain.GeoPoint, error) {
	edges := make([][2]domain.GeoPoint, 0, len(waypoints))
	for i := 1; i < len(waypoints); i++ {
		edges = append(edges, [2]domain.GeoPoint{waypoints[i-1], waypoints[i]})
	}
	if closed && len(waypoints) >= 3 {
		edges = append(edges, [2]domain.GeoPoint{waypoints[len(waypoints)-1], waypoints[0]})
	}

	query := ports.RouteQuery{Alternatives: true, Steps: req.AvoidHighways}
	score := s.opts.Score
	score.AvoidHighways = req.AvoidHighways

	var path []domain.GeoPoint
	consecutiveFailures := 0

	for i, edge := range edges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var segment []domain.GeoPoint
		if consecutiveFailures >= s.opts.MaxSegmentFailures {
			// Budget exhausted: stop hammering the oracle.
			segment = []domain.GeoPoint{edge[0], edge[1]}
			metrics.StraightLineFallbacks.Inc()
		} else {
			cands, err := s.oracle.Route(ctx, []domain.GeoPoint{edge[0], edge[1]}, req.Profile, query)
			switch {
			case err == nil:
				consecutiveFailures = 0
			case errors.Is(err, ports.ErrOracleUnavailable):
				consecutiveFailures++
				metrics.StraightLineFallbacks.Inc()
				slog.Warn("segment routing degraded",
					"edge", i, "consecutive_failures", consecutiveFailures)
			default:
				return nil, err
			}

			best := SelectCandidate(cands, edge[0], edge[1], score)
			if best < 0 {
				segment = []domain.GeoPoint{edge[0], edge[1]}
			} else {
				segment = cands[best].Points
			}
		}

		if len(path) > 0 && len(segment) > 0 && path[len(path)-1] == segment[0] {
			segment = segment[1:] // drop duplicated join point
		}
		path = append(path, segment...)

		if s.opts.EdgeDelay > 0 && i < len(edges)-1 {
			select {
			case <-time.After(s.opts.EdgeDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return path, nil
}

// routeWhole issues a single multi-waypoint oracle call and keeps the
// best-scored candidate.
func (s *Synthesizer) routeWhole(ctx context.Context, waypoints []domain.GeoPoint, req domain.SynthesisRequest) ([]domain.GeoPoint, error) {
	query := ports.RouteQuery{Alternatives: true, Steps: req.AvoidHighways}
	score := s.opts.Score
	score.AvoidHighways = req.AvoidHighways

	cands, err := s.oracle.Route(ctx, waypoints, req.Profile, query)
	if err != nil && !errors.Is(err, ports.ErrOracleUnavailable) {
		return nil, err
	}

	best := SelectCandidate(cands, waypoints[0], waypoints[len(waypoints)-1], score)
	if best < 0 {
		return waypoints, nil
	}
	return cands[best].Points, nil
}

func (s *Synthesizer) finish(ctx context.Context, req domain.SynthesisRequest, pts []domain.GeoPoint, start time.Time) *domain.Route {
	route := &domain.Route{
		Name:           req.Name,
		Profile:        req.Profile,
		Points:         pts,
		DistanceMeters: pathLengthKm(pts) * 1000,
		Style:          domain.DefaultStyle(),
	}

	s.stage(ctx, domain.StageDone, len(pts))
	metrics.SynthesisDuration.WithLabelValues(string(req.Profile)).Observe(time.Since(start).Seconds())

	if s.publisher != nil {
		if err := s.publisher.PublishRouteSynthesized(ctx, route); err != nil {
			slog.Warn("publish synthesized route", "error", err)
		}
	}

	slog.Info("route synthesized",
		"profile", req.Profile,
		"points", len(pts),
		"distance_m", fmt.Sprintf("%.0f", route.DistanceMeters),
		"elapsed", time.Since(start).String(),
	)
	return route
}

// stage records a pipeline state transition for tracing and live progress.
func (s *Synthesizer) stage(ctx context.Context, st domain.SynthesisStage, waypoints int) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(string(st), trace.WithAttributes(attribute.Int("waypoints", waypoints)))

	if s.publisher != nil {
		evt := &domain.StageEvent{Stage: st, Waypoints: waypoints}
		if err := s.publisher.PublishStageEvent(ctx, evt); err != nil {
			slog.Debug("publish stage event", "stage", st, "error", err)
		}
	}
}

