package events

import (
	"context"
	"encoding/json"

	"govbid/internal/logger"
)

const Channel = "govbid:job-events"

// PubSub is the Redis surface the bus needs.
type PubSub interface {
	Publish(ctx context.Context, channel string, msg any) error
	Subscribe(ctx context.Context, channel string, onMsg func(payload []byte)) error
}

// Bus publishes job events so that every API instance can forward them to
// its own SSE clients. Without Redis it delivers to the local hub directly.
type Bus struct {
	hub    *Hub
	pubsub PubSub
	log    *logger.Logger
	remote bool
}

func NewBus(hub *Hub, pubsub PubSub, log *logger.Logger) *Bus {
	return &Bus{hub: hub, pubsub: pubsub, log: log.With("component", "JobEventBus")}
}

// Start subscribes to the shared channel. On failure the bus stays local.
func (b *Bus) Start(ctx context.Context) {
	if b.pubsub == nil {
		return
	}
	err := b.pubsub.Subscribe(ctx, Channel, func(payload []byte) {
		var ev JobEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			b.log.Warn("bad job event payload", "error", err)
			return
		}
		b.hub.Broadcast(ev)
	})
	if err != nil {
		b.log.Warn("job event subscription unavailable, delivering locally", "error", err)
		return
	}
	b.remote = true
}

func (b *Bus) Publish(ctx context.Context, ev JobEvent) {
	if b.remote {
		err := b.pubsub.Publish(ctx, Channel, ev)
		if err == nil {
			return
		}
		b.log.Warn("job event publish failed, delivering locally", "error", err)
	}
	b.hub.Broadcast(ev)
}
