package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/routesketch/routesketch/internal/core/domain"
)

// Subjects used by the synthesis pipeline. Stage events are ephemeral
// progress ticks and go over core NATS; finished routes are durable and go
// through JetStream.
const (
	subjectRouteSynthesized = "routes.synthesized"
	subjectStagePrefix      = "routes.stage."
	subjectBroadcast        = "routes.updates.broadcast"
)

// Publisher implements ports.EventPublisher using NATS.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the route-event stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "ROUTES_SYNTHESIZED",
		Subjects:  []string{"routes.synthesized"},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist — try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishRouteSynthesized announces a completed synthesis durably.
func (p *Publisher) PublishRouteSynthesized(ctx context.Context, route *domain.Route) error {
	data, err := json.Marshal(route)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subjectRouteSynthesized, data)
	return err
}

// PublishStageEvent fires a pipeline progress tick. Stage events are only
// interesting while the synthesis runs, so they skip JetStream.
func (p *Publisher) PublishStageEvent(ctx context.Context, event *domain.StageEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(subjectStagePrefix+string(event.Stage), data)
}

// PublishBroadcast relays an opaque payload to all live map clients.
func (p *Publisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return p.conn.Publish(subjectBroadcast, data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
