package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// ChannelFor is the Redis channel a user's client subscribes to.
func ChannelFor(n NotifyArgs) string {
	return "notifications." + n.UserID.String()
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes notifications on the user's channel.
type RedisSink struct {
	client publisher
}

func NewRedisSink(client publisher) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Deliver(ctx context.Context, n NotifyArgs) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return s.client.Publish(ctx, ChannelFor(n), payload).Err()
}

// LogSink only logs. Used when no Redis is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Deliver(ctx context.Context, n NotifyArgs) error {
	s.Logger.InfoContext(ctx, "notification", "user_id", n.UserID, "title", n.Title, "priority", n.Priority)
	return nil
}
