package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/routesketch/routesketch/internal/core/domain"
	"github.com/routesketch/routesketch/internal/pkg/polyline"
)

// RouteRepo implements ports.RouteRepository. Geometry is stored as a
// PostGIS geography LINESTRING and read back as an encoded polyline, which
// keeps the wire format and the storage format in the same codec.
type RouteRepo struct {
	db *DB
}

func NewRouteRepo(db *DB) *RouteRepo { return &RouteRepo{db: db} }

func (r *RouteRepo) Save(ctx context.Context, route *domain.Route) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO routes (name, profile, geom, distance_meters, color, weight, opacity)
		VALUES ($1, $2, ST_GeogFromText($3), $4, $5, $6, $7)
		RETURNING id, created_at
	`, route.Name, string(route.Profile), lineWKT(route.Points), route.DistanceMeters,
		route.Style.Color, route.Style.Weight, route.Style.Opacity,
	).Scan(&route.ID, &route.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert route: %w", err)
	}
	return nil
}

func (r *RouteRepo) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	var (
		rt       domain.Route
		geometry string
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, profile, ST_AsEncodedPolyline(geom::geometry),
		       distance_meters, color, weight, opacity, created_at
		FROM routes WHERE id = $1
	`, id).Scan(&rt.ID, &rt.Name, &rt.Profile, &geometry,
		&rt.DistanceMeters, &rt.Style.Color, &rt.Style.Weight, &rt.Style.Opacity, &rt.CreatedAt)
	if err != nil {
		return nil, err
	}
	rt.Points = decodeGeometry(geometry)
	return &rt, nil
}

func (r *RouteRepo) List(ctx context.Context, limit, offset int) ([]domain.Route, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, profile, ST_AsEncodedPolyline(geom::geometry),
		       distance_meters, color, weight, opacity, created_at
		FROM routes
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []domain.Route
	for rows.Next() {
		var (
			rt       domain.Route
			geometry string
		)
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.Profile, &geometry,
			&rt.DistanceMeters, &rt.Style.Color, &rt.Style.Weight, &rt.Style.Opacity, &rt.CreatedAt); err != nil {
			return nil, err
		}
		rt.Points = decodeGeometry(geometry)
		routes = append(routes, rt)
	}
	return routes, rows.Err()
}

func (r *RouteRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("route %s not found", id)
	}
	return nil
}

// lineWKT builds a LINESTRING WKT literal in lon/lat order.
func lineWKT(pts []domain.GeoPoint) string {
	var sb strings.Builder
	sb.WriteString("LINESTRING(")
	for i, p := range pts {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "%f %f", p.Lon, p.Lat)
	}
	sb.WriteString(")")
	return sb.String()
}

func decodeGeometry(encoded string) []domain.GeoPoint {
	pairs := polyline.Decode(encoded)
	pts := make([]domain.GeoPoint, len(pairs))
	for i, pr := range pairs {
		pts[i] = domain.GeoPoint{Lat: pr[0], Lon: pr[1]}
	}
	return pts
}
