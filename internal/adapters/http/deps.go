package http

import (
	"github.com/nats-io/nats.go"

	"github.com/routesketch/routesketch/internal/adapters/postgres"
	"github.com/routesketch/routesketch/internal/adapters/valkey"
	"github.com/routesketch/routesketch/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Synthesizer *usecases.Synthesizer
	Routes      *usecases.RouteService
	NATS        *nats.Conn
	DB          *postgres.DB
	Cache       *valkey.Cache
}
