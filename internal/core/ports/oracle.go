package ports

import (
	"context"
	"errors"

	"github.com/routesketch/routesketch/internal/core/domain"
)

// ErrOracleUnavailable marks a soft oracle failure: timeout, non-success
// status, rate limiting, or a malformed body. Calls returning it still
// carry a usable degraded result.
var ErrOracleUnavailable = errors.New("road oracle unavailable")

// RouteQuery tunes a single road-routing oracle call.
type RouteQuery struct {
	// Alternatives asks the oracle for more than one candidate geometry.
	Alternatives bool
	// Steps asks for per-segment metadata (names, refs, road classes),
	// needed for highway-avoidance scoring.
	Steps bool
}

// RoadOracle is the narrow interface to the external road-routing service.
//
// Both operations are idempotent network calls, and both degrade instead of
// failing: on oracle unavailability Nearest returns the input point and
// Route returns a single synthetic straight-line candidate, each alongside
// ErrOracleUnavailable so callers can count failures while still having
// geometry to work with. Only context cancellation produces an error with
// no usable result.
type RoadOracle interface {
	// Nearest snaps a point to the closest position on the routable network.
	Nearest(ctx context.Context, pt domain.GeoPoint, profile domain.Profile) (domain.GeoPoint, error)

	// NearestBatch snaps many points, preserving input order.
	NearestBatch(ctx context.Context, pts []domain.GeoPoint, profile domain.Profile) ([]domain.GeoPoint, error)

	// Route returns one or more candidate geometries visiting the given
	// waypoints in order.
	Route(ctx context.Context, waypoints []domain.GeoPoint, profile domain.Profile, q RouteQuery) ([]domain.RouteCandidate, error)
}
