package usecases_test

import (
	"testing"

	"github.com/routesketch/routesketch/internal/core/domain"
	"github.com/routesketch/routesketch/internal/core/usecases"
)

var (
	scoreOrigin = domain.GeoPoint{Lat: 34.05, Lon: -118.25}
	scoreDest   = domain.GeoPoint{Lat: 34.06, Lon: -118.25}
)

// straightCand builds a direct two-point candidate with the given distance.
func straightCand(distanceMeters float64, segments ...domain.RoadSegment) domain.RouteCandidate {
	return domain.RouteCandidate{
		Points:         []domain.GeoPoint{scoreOrigin, scoreDest},
		DistanceMeters: distanceMeters,
		Segments:       segments,
	}
}

func TestSelectCandidatePrefersStraighter(t *testing.T) {
	// Same endpoints; the second candidate wanders twice as far.
	cands := []domain.RouteCandidate{
		straightCand(2400),
		straightCand(1200),
	}

	best := usecases.SelectCandidate(cands, scoreOrigin, scoreDest, usecases.DefaultScoreOptions())
	if best != 1 {
		t.Errorf("expected shorter candidate 1, got %d", best)
	}
}

func TestSelectCandidateAvoidsHighways(t *testing.T) {
	opts := usecases.DefaultScoreOptions()
	opts.AvoidHighways = true

	onHighway := straightCand(1250, domain.RoadSegment{
		Name: "Santa Monica Freeway", LengthMeters: 900,
	})
	onStreets := straightCand(1400, domain.RoadSegment{
		Name: "Main Street", LengthMeters: 1400,
	})

	best := usecases.SelectCandidate([]domain.RouteCandidate{onHighway, onStreets}, scoreOrigin, scoreDest, opts)
	if best != 1 {
		t.Errorf("expected street candidate 1, got %d", best)
	}
}

func TestSelectCandidateAllRestrictedStillPicks(t *testing.T) {
	opts := usecases.DefaultScoreOptions()
	opts.AvoidHighways = true

	cands := []domain.RouteCandidate{
		straightCand(1300, domain.RoadSegment{Ref: "I-405", LengthMeters: 1300}),
		straightCand(1200, domain.RoadSegment{Ref: "US-101", LengthMeters: 1200}),
	}

	best := usecases.SelectCandidate(cands, scoreOrigin, scoreDest, opts)
	if best < 0 {
		t.Fatal("selection must still pick a candidate when all are restricted")
	}
}

func TestSelectCandidateTieKeepsFirst(t *testing.T) {
	cands := []domain.RouteCandidate{
		straightCand(1200),
		straightCand(1200),
	}
	if best := usecases.SelectCandidate(cands, scoreOrigin, scoreDest, usecases.DefaultScoreOptions()); best != 0 {
		t.Errorf("tie must keep the oracle's first candidate, got %d", best)
	}
}

func TestSelectCandidateEmpty(t *testing.T) {
	if best := usecases.SelectCandidate(nil, scoreOrigin, scoreDest, usecases.DefaultScoreOptions()); best != -1 {
		t.Errorf("expected -1 for no candidates, got %d", best)
	}
}

func TestIsRestrictedSegment(t *testing.T) {
	cases := []struct {
		seg  domain.RoadSegment
		want bool
	}{
		{domain.RoadSegment{Class: "motorway"}, true},
		{domain.RoadSegment{Class: "trunk_link"}, true},
		{domain.RoadSegment{Ref: "I-10"}, true},
		{domain.RoadSegment{Ref: "us-101"}, true},
		{domain.RoadSegment{Name: "New Jersey Turnpike"}, true},
		{domain.RoadSegment{Name: "Harbor Freeway"}, true},
		{domain.RoadSegment{Name: "Quiet Residential Lane"}, false},
		{domain.RoadSegment{Class: "residential"}, false},
		{domain.RoadSegment{}, false},
	}
	for _, tc := range cases {
		if got := usecases.IsRestrictedSegment(tc.seg); got != tc.want {
			t.Errorf("IsRestrictedSegment(%+v) = %v, want %v", tc.seg, got, tc.want)
		}
	}
}
