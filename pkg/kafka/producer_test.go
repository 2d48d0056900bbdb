package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	at := time.Date(2025, 4, 13, 10, 0, 0, 0, time.UTC)
	msg, err := NewMessage(EventTransactionRecorded, "booking-1", map[string]string{"amount": "50500"}, at)
	require.NoError(t, err)

	assert.Equal(t, []byte("booking-1"), msg.Key)
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, EventTransactionRecorded, string(msg.Headers[0].Value))

	var env struct {
		Type    string            `json:"type"`
		Key     string            `json:"key"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, EventTransactionRecorded, env.Type)
	assert.Equal(t, "50500", env.Payload["amount"])
}

func TestNewMessageRejectsUnencodable(t *testing.T) {
	_, err := NewMessage(EventBookingStatusChanged, "k", make(chan int), time.Now())
	assert.Error(t, err)
}

func TestNewProducerWithoutBrokersFallsBack(t *testing.T) {
	p := NewProducer(context.Background(), nil, "catering.events")
	assert.NoError(t, p.Publish(context.Background(), EventBookingStatusChanged, "b1", nil))
	assert.NoError(t, p.Close())
}
