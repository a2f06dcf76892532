package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/routesketch/routesketch/internal/core/domain"
	"github.com/routesketch/routesketch/internal/core/ports"
	"github.com/routesketch/routesketch/internal/pkg/geospatial"
	"github.com/routesketch/routesketch/internal/pkg/metrics"
	"github.com/routesketch/routesketch/internal/pkg/polyline"
)

// snapCloseEnoughMeters keeps the user's point when the network match is
// within GPS noise anyway.
const snapCloseEnoughMeters = 10

// Options configures the OSRM client.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	SnapBatchSize  int
	SnapBatchDelay time.Duration
	SnapCacheSize  int
}

// Client implements ports.RoadOracle against an OSRM HTTP server.
//
// Soft failures (network errors, non-200 status, malformed bodies, no
// match) return degraded geometry alongside ports.ErrOracleUnavailable;
// only context cancellation surfaces as a bare error.
type Client struct {
	baseURL    string
	httpc      *http.Client
	snaps      *snapCache
	batchSize  int
	batchDelay time.Duration
}

// New creates an OSRM client. Zero option fields get production defaults.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://router.project-osrm.org"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.SnapBatchSize <= 0 {
		opts.SnapBatchSize = 10
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpc:      &http.Client{Timeout: opts.Timeout},
		snaps:      newSnapCache(opts.SnapCacheSize),
		batchSize:  opts.SnapBatchSize,
		batchDelay: opts.SnapBatchDelay,
	}
}

// --- Wire types ---

type nearestResponse struct {
	Code      string `json:"code"`
	Waypoints []struct {
		Location [2]float64 `json:"location"` // lon, lat
		Distance float64    `json:"distance"`
	} `json:"waypoints"`
}

type routeResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Geometry string  `json:"geometry"`
	Distance float64 `json:"distance"`
	Legs     []struct {
		Steps []osrmStep `json:"steps"`
	} `json:"legs"`
}

type osrmStep struct {
	Name          string  `json:"name"`
	Ref           string  `json:"ref"`
	Distance      float64 `json:"distance"`
	Intersections []struct {
		Classes []string `json:"classes"`
	} `json:"intersections"`
}

// --- ports.RoadOracle ---

// Nearest snaps a point onto the routable network, answering from the
// in-process snap cache when the coordinate was seen before.
func (c *Client) Nearest(ctx context.Context, pt domain.GeoPoint, profile domain.Profile) (domain.GeoPoint, error) {
	key := snapKey(pt, profile)
	if snapped, ok := c.snaps.get(key); ok {
		metrics.SnapCacheHits.Inc()
		return snapped, nil
	}
	metrics.SnapCacheMisses.Inc()

	url := fmt.Sprintf("%s/nearest/v1/%s/%f,%f?number=1", c.baseURL, profile, pt.Lon, pt.Lat)

	var resp nearestResponse
	if err := c.getJSON(ctx, "nearest", profile, url, &resp); err != nil {
		if ctx.Err() != nil {
			return domain.GeoPoint{}, ctx.Err()
		}
		slog.Warn("nearest lookup degraded", "error", err)
		return pt, ports.ErrOracleUnavailable
	}
	if resp.Code != "Ok" || len(resp.Waypoints) == 0 {
		metrics.OracleErrors.WithLabelValues("nearest", "no_match").Inc()
		return pt, ports.ErrOracleUnavailable
	}

	wp := resp.Waypoints[0]
	snapped := domain.GeoPoint{Lat: wp.Location[1], Lon: wp.Location[0]}
	if wp.Distance <= snapCloseEnoughMeters {
		snapped = pt
	}
	c.snaps.put(key, snapped)
	return snapped, nil
}

// NearestBatch snaps many points, preserving input order. Points within a
// batch are looked up concurrently; batches are paced by the configured
// delay so a public OSRM instance is not hammered.
func (c *Client) NearestBatch(ctx context.Context, pts []domain.GeoPoint, profile domain.Profile) ([]domain.GeoPoint, error) {
	out := make([]domain.GeoPoint, len(pts))

	var (
		mu       sync.Mutex
		degraded bool
	)

	for start := 0; start < len(pts); start += c.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+c.batchSize, len(pts))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				snapped, err := c.Nearest(ctx, pts[i], profile)
				if err != nil {
					snapped = pts[i]
					mu.Lock()
					degraded = true
					mu.Unlock()
				}
				out[i] = snapped
			}(i)
		}
		wg.Wait()

		if c.batchDelay > 0 && end < len(pts) {
			select {
			case <-time.After(c.batchDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if degraded {
		return out, ports.ErrOracleUnavailable
	}
	return out, nil
}

// Route asks OSRM for candidate geometries visiting the waypoints in
// order. An unreachable or matchless oracle yields a single synthetic
// straight-line candidate.
func (c *Client) Route(ctx context.Context, waypoints []domain.GeoPoint, profile domain.Profile, q ports.RouteQuery) ([]domain.RouteCandidate, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("route needs at least 2 waypoints, got %d", len(waypoints))
	}

	var coords strings.Builder
	for i, p := range waypoints {
		if i > 0 {
			coords.WriteByte(';')
		}
		fmt.Fprintf(&coords, "%f,%f", p.Lon, p.Lat)
	}

	url := fmt.Sprintf("%s/route/v1/%s/%s?overview=full&geometries=polyline",
		c.baseURL, profile, coords.String())
	if q.Alternatives {
		url += "&alternatives=true"
	}
	if q.Steps {
		url += "&steps=true"
	}

	var resp routeResponse
	if err := c.getJSON(ctx, "route", profile, url, &resp); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("route lookup degraded", "error", err)
		return []domain.RouteCandidate{straightCandidate(waypoints)}, ports.ErrOracleUnavailable
	}
	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		metrics.OracleErrors.WithLabelValues("route", "no_route").Inc()
		return []domain.RouteCandidate{straightCandidate(waypoints)}, ports.ErrOracleUnavailable
	}

	cands := make([]domain.RouteCandidate, 0, len(resp.Routes))
	for _, r := range resp.Routes {
		pairs := polyline.Decode(r.Geometry)
		if len(pairs) < 2 {
			continue
		}
		pts := make([]domain.GeoPoint, len(pairs))
		for i, pr := range pairs {
			pts[i] = domain.GeoPoint{Lat: pr[0], Lon: pr[1]}
		}
		cands = append(cands, domain.RouteCandidate{
			Points:         pts,
			DistanceMeters: r.Distance,
			Segments:       segmentsOf(r),
		})
	}
	if len(cands) == 0 {
		metrics.OracleErrors.WithLabelValues("route", "empty_geometry").Inc()
		return []domain.RouteCandidate{straightCandidate(waypoints)}, ports.ErrOracleUnavailable
	}
	return cands, nil
}

// --- Internals ---

func (c *Client) getJSON(ctx context.Context, operation string, profile domain.Profile, url string, out interface{}) error {
	metrics.OracleRequests.WithLabelValues(operation, string(profile)).Inc()
	start := time.Now()
	defer func() {
		metrics.OracleDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		metrics.OracleErrors.WithLabelValues(operation, "network").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		metrics.OracleErrors.WithLabelValues(operation, "status").Inc()
		return fmt.Errorf("HTTP %d from oracle", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.OracleErrors.WithLabelValues(operation, "decode").Inc()
		return fmt.Errorf("decode oracle response: %w", err)
	}
	return nil
}

// snapKey rounds to 5 decimals (about one meter) so nearby lookups share a
// cache entry.
func snapKey(pt domain.GeoPoint, profile domain.Profile) string {
	return fmt.Sprintf("%s:%.5f,%.5f", profile, pt.Lat, pt.Lon)
}

func straightCandidate(waypoints []domain.GeoPoint) domain.RouteCandidate {
	pts := make([]domain.GeoPoint, len(waypoints))
	copy(pts, waypoints)

	var meters float64
	for i := 1; i < len(pts); i++ {
		meters += geospatial.Haversine(pts[i-1].Lat, pts[i-1].Lon, pts[i].Lat, pts[i].Lon)
	}
	return domain.RouteCandidate{Points: pts, DistanceMeters: meters}
}

func segmentsOf(r osrmRoute) []domain.RoadSegment {
	var segs []domain.RoadSegment
	for _, leg := range r.Legs {
		for _, st := range leg.Steps {
			seg := domain.RoadSegment{Name: st.Name, Ref: st.Ref, LengthMeters: st.Distance}
			if len(st.Intersections) > 0 && len(st.Intersections[0].Classes) > 0 {
				seg.Class = st.Intersections[0].Classes[0]
			}
			segs = append(segs, seg)
		}
	}
	return segs
}
