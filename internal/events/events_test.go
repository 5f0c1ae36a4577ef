package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	channel string
	payload []byte
	err     error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedisPublisher_PublishStatusChanged(t *testing.T) {
	fake := &fakeRedis{}
	p := NewRedisPublisher(fake)
	e := AppointmentStatusChanged{AppointmentID: uuid.New(), Status: "approved", PreviousStatus: "pending"}

	require.NoError(t, p.PublishStatusChanged(context.Background(), e))
	assert.Equal(t, StatusChannel, fake.channel)

	var got AppointmentStatusChanged
	require.NoError(t, json.Unmarshal(fake.payload, &got))
	assert.Equal(t, e.AppointmentID, got.AppointmentID)
	assert.Equal(t, "pending", got.PreviousStatus)
}

func TestRedisPublisher_PropagatesError(t *testing.T) {
	p := NewRedisPublisher(&fakeRedis{err: errors.New("connection refused")})
	err := p.PublishStatusChanged(context.Background(), AppointmentStatusChanged{})
	assert.ErrorContains(t, err, "connection refused")
}
