package usecases

import (
	"strings"

	"github.com/routesketch/routesketch/internal/core/domain"
	"github.com/routesketch/routesketch/internal/pkg/geospatial"
)

// ScoreOptions holds the candidate-scoring tuning surface. The weights are
// heuristics carried over from field tuning, not derived constants.
type ScoreOptions struct {
	PreferStraight bool
	AvoidHighways  bool
	// PenaltyFloor is the lowest multiplier highway exposure can impose.
	PenaltyFloor float64
	// PenaltyPerKm controls how fast exposure pushes toward the floor.
	PenaltyPerKm float64
	// PenaltyPerSegment adds pressure for fragmented highway crossings.
	PenaltyPerSegment float64
}

// DefaultScoreOptions returns the default scoring weights.
func DefaultScoreOptions() ScoreOptions {
	return ScoreOptions{
		PreferStraight:    true,
		PenaltyFloor:      0.2,
		PenaltyPerKm:      0.25,
		PenaltyPerSegment: 0.05,
	}
}

// restrictedClasses are road classification tags never welcome on a foot or
// bike route.
var restrictedClasses = map[string]bool{
	"motorway":      true,
	"motorway_link": true,
	"trunk":         true,
	"trunk_link":    true,
	"freeway":       true,
}

// restrictedNameHints flag highways by display name when no class tag is
// present.
var restrictedNameHints = []string{"freeway", "turnpike", "interstate", "expressway", "motorway"}

// restrictedRefPrefixes match US-style route references such as "I-405".
var restrictedRefPrefixes = []string{"I-", "US-"}

// SelectCandidate picks the best of the oracle's candidates for one
// origin/destination pair. Ties keep the earliest candidate, matching the
// oracle's own preference order. Returns -1 only for an empty candidate set.
func SelectCandidate(cands []domain.RouteCandidate, origin, dest domain.GeoPoint, opts ScoreOptions) int {
	if len(cands) == 0 {
		return -1
	}
	if len(cands) == 1 {
		return 0
	}

	best := 0
	bestScore := scoreCandidate(cands[0], origin, dest, opts)
	for i := 1; i < len(cands); i++ {
		if s := scoreCandidate(cands[i], origin, dest, opts); s > bestScore {
			best = i
			bestScore = s
		}
	}
	return best
}

func scoreCandidate(c domain.RouteCandidate, origin, dest domain.GeoPoint, opts ScoreOptions) float64 {
	distKm := c.DistanceMeters / 1000
	if distKm <= 0 {
		distKm = pathLengthKm(c.Points)
	}

	straightness := 1.0
	if opts.PreferStraight && distKm > 0 {
		direct := geospatial.Haversine(origin.Lat, origin.Lon, dest.Lat, dest.Lon) / 1000
		straightness = direct / distKm
		if straightness > 1 {
			straightness = 1
		}
	}

	// Shorter candidates get a mild bonus; the +1 keeps it bounded.
	distanceBonus := 1 + 1/(distKm+1)

	penalty := 1.0
	if opts.AvoidHighways {
		penalty = highwayPenalty(c.Segments, opts)
	}

	return straightness * distanceBonus * penalty
}

// highwayPenalty converts restricted-road exposure to a multiplier in
// [PenaltyFloor, 1]. Zero exposure scores 1.
func highwayPenalty(segments []domain.RoadSegment, opts ScoreOptions) float64 {
	var exposureKm float64
	var crossings int
	for _, s := range segments {
		if IsRestrictedSegment(s) {
			exposureKm += s.LengthMeters / 1000
			crossings++
		}
	}
	if crossings == 0 {
		return 1
	}

	penalty := 1 - exposureKm*opts.PenaltyPerKm - float64(crossings)*opts.PenaltyPerSegment
	if penalty < opts.PenaltyFloor {
		penalty = opts.PenaltyFloor
	}
	return penalty
}

// IsRestrictedSegment reports whether a road segment belongs to a class the
// synthesis should avoid, by explicit class tag or by name/ref heuristics.
func IsRestrictedSegment(s domain.RoadSegment) bool {
	if restrictedClasses[strings.ToLower(s.Class)] {
		return true
	}
	for _, prefix := range restrictedRefPrefixes {
		if strings.HasPrefix(strings.ToUpper(s.Ref), prefix) {
			return true
		}
	}
	name := strings.ToLower(s.Name)
	for _, hint := range restrictedNameHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

func pathLengthKm(pts []domain.GeoPoint) float64 {
	var meters float64
	for i := 1; i < len(pts); i++ {
		meters += geospatial.Haversine(pts[i-1].Lat, pts[i-1].Lon, pts[i].Lat, pts[i].Lon)
	}
	return meters / 1000
}
