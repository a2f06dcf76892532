package domain

import (
	"time"
)

// Profile selects the travel mode used when talking to the road oracle.
type Profile string

const (
	ProfileWalking Profile = "walking"
	ProfileCycling Profile = "cycling"
	ProfileDriving Profile = "driving"
)

// Valid reports whether the profile is one of the supported travel modes.
func (p Profile) Valid() bool {
	switch p {
	case ProfileWalking, ProfileCycling, ProfileDriving:
		return true
	}
	return false
}

// RoadSegment is one named stretch of road inside a route candidate.
type RoadSegment struct {
	Name         string  `json:"name,omitempty"`
	Ref          string  `json:"ref,omitempty"`   // road reference, e.g. "I-405" or "US-101"
	Class        string  `json:"class,omitempty"` // road classification tag, e.g. "motorway"
	LengthMeters float64 `json:"length_meters"`
}

// RouteCandidate is one oracle-returned geometry for an origin/destination pair.
type RouteCandidate struct {
	Points         []GeoPoint    `json:"points"`
	DistanceMeters float64       `json:"distance_meters"`
	Segments       []RoadSegment `json:"segments,omitempty"`
}

// RouteStyle describes how a route is rendered on the map.
type RouteStyle struct {
	Color   string  `json:"color"`
	Weight  int     `json:"weight"`
	Opacity float64 `json:"opacity"`
}

// DefaultStyle is applied to synthesized routes unless the caller overrides it.
func DefaultStyle() RouteStyle {
	return RouteStyle{Color: "#E8554D", Weight: 4, Opacity: 0.9}
}

// Route is the final synthesized artifact: an ordered street-aligned polyline.
// A route is valid when it has at least two in-range coordinates.
type Route struct {
	ID             string     `json:"id,omitempty"`
	Name           string     `json:"name,omitempty"`
	Profile        Profile    `json:"profile"`
	Points         []GeoPoint `json:"points"`
	DistanceMeters float64    `json:"distance_meters"`
	Style          RouteStyle `json:"style"`
	CreatedAt      time.Time  `json:"created_at,omitempty"`
}

// Valid reports whether the route satisfies the route invariant.
func (r *Route) Valid() bool {
	if len(r.Points) < 2 {
		return false
	}
	for _, p := range r.Points {
		if !p.Valid() {
			return false
		}
	}
	return true
}
