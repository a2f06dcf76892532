package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/routesketch/routesketch/internal/core/domain"
	"github.com/routesketch/routesketch/internal/core/ports"
	"github.com/routesketch/routesketch/internal/pkg/metrics"
)

// RouteService handles saved-route business logic.
type RouteService struct {
	routes ports.RouteRepository
	cache  ports.CacheService
}

// NewRouteService creates a new RouteService. cache may be nil.
func NewRouteService(routes ports.RouteRepository, cache ports.CacheService) *RouteService {
	return &RouteService{routes: routes, cache: cache}
}

// Save persists a synthesized route the user wants to keep.
func (s *RouteService) Save(ctx context.Context, route *domain.Route) error {
	if !route.Valid() {
		return fmt.Errorf("route must have at least 2 valid coordinates")
	}
	if route.Name == "" {
		route.Name = "Untitled sketch"
	}
	if err := s.routes.Save(ctx, route); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "routes:list")
	}
	return nil
}

// GetByID returns a saved route.
func (s *RouteService) GetByID(ctx context.Context, id string) (*domain.Route, error) {
	cacheKey := "routes:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var route domain.Route
			if err := json.Unmarshal(data, &route); err == nil {
				metrics.CacheHits.WithLabelValues("route_get").Inc()
				return &route, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("route_get").Inc()
	}

	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(route); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}
	return route, nil
}

// List returns saved routes, newest first.
func (s *RouteService) List(ctx context.Context, limit, offset int) ([]domain.Route, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.routes.List(ctx, limit, offset)
}

// Delete removes a saved route.
func (s *RouteService) Delete(ctx context.Context, id string) error {
	if err := s.routes.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "routes:id:"+id)
		_ = s.cache.Delete(ctx, "routes:list")
	}
	return nil
}
