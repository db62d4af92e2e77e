package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisMirrorDispatcher wraps another dispatcher and mirrors every
// published event onto a Redis pub/sub channel so external consumers
// (dashboards, audit sinks) can follow the event stream.
type redisMirrorDispatcher struct {
	inner   Dispatcher
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisMirrorDispatcher decorates inner with Redis publication.
// A nil client degrades to the inner dispatcher alone.
func NewRedisMirrorDispatcher(inner Dispatcher, client *redis.Client, channel string, logger *zap.Logger) Dispatcher {
	if client == nil {
		return inner
	}
	return &redisMirrorDispatcher{inner: inner, client: client, channel: channel, logger: logger}
}

func (d *redisMirrorDispatcher) Publish(ctx context.Context, event Event) error {
	if err := d.inner.Publish(ctx, event); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		d.logger.Warn("marshal event for redis mirror", zap.Error(err))
		return nil
	}
	if err := d.client.Publish(ctx, d.channel, payload).Err(); err != nil {
		// Mirroring is best-effort; local handlers already ran.
		d.logger.Warn("publish event to redis", zap.Error(err))
	}
	return nil
}

func (d *redisMirrorDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.inner.Subscribe(eventType, handler)
}
