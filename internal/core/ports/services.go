package ports

import (
	"context"

	"github.com/routesketch/routesketch/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRouteSynthesized(ctx context.Context, route *domain.Route) error
	PublishStageEvent(ctx context.Context, event *domain.StageEvent) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// CacheService provides read-through caching for saved routes.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
