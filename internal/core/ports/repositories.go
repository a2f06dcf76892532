package ports

import (
	"context"

	"github.com/routesketch/routesketch/internal/core/domain"
)

// RouteRepository persists routes a user chose to keep.
type RouteRepository interface {
	Save(ctx context.Context, route *domain.Route) error
	GetByID(ctx context.Context, id string) (*domain.Route, error)
	List(ctx context.Context, limit, offset int) ([]domain.Route, error)
	Delete(ctx context.Context, id string) error
}
