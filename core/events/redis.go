package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisForwarder returns a Handler that re-publishes every event on a Redis
// channel so other processes (a second API node, a sheets worker) see them.
func RedisForwarder(client *redis.Client, channel string, log *zap.Logger) Handler {
	return func(ev Event) {
		payload, err := json.Marshal(ev)
		if err != nil {
			log.Warn("encode event for redis", zap.String("event", ev.Name), zap.Error(err))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Publish(ctx, channel, payload).Err(); err != nil {
			log.Warn("redis publish failed", zap.String("event", ev.Name), zap.Error(err))
		}
	}
}
