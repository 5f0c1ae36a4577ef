// Package events broadcasts appointment status changes to other services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StatusChannel is the Redis channel status changes are published on.
const StatusChannel = "appointments.status"

// AppointmentStatusChanged is emitted after a transition has committed.
type AppointmentStatusChanged struct {
	AppointmentID  uuid.UUID `json:"appointment_id"`
	BookingCode    string    `json:"booking_code"`
	CustomerID     uuid.UUID `json:"customer_id"`
	StylistID      uuid.UUID `json:"stylist_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishStatusChanged(ctx context.Context, e AppointmentStatusChanged) error
}

// Connect initializes a Redis client from URL or host:port input.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// redisPublisher is the slice of *redis.Client the publishers need.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisPublisher struct {
	client redisPublisher
}

func NewRedisPublisher(client redisPublisher) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishStatusChanged(ctx context.Context, e AppointmentStatusChanged) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, StatusChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", StatusChannel, err)
	}
	return nil
}

// LogPublisher writes events to the log. Used when no Redis is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) PublishStatusChanged(ctx context.Context, e AppointmentStatusChanged) error {
	p.Logger.InfoContext(ctx, "appointment status changed",
		"appointment_id", e.AppointmentID,
		"status", e.Status,
		"previous_status", e.PreviousStatus,
	)
	return nil
}
