package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/mq"
)

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	calls    int
	messages map[string]interface{}
}

func (f *fakePublisher) Publish(_ context.Context, key string, msg interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.messages == nil {
		f.messages = make(map[string]interface{})
	}
	f.messages[key] = msg
	return nil
}

func note(topic string) reservation.Notification {
	return reservation.Notification{Topic: topic, ReservationID: 1, UserID: 2, BookID: 3, Status: "assigned"}
}

func TestMQNotifier_PublishesByTopic(t *testing.T) {
	pub := &fakePublisher{}
	n := newMQNotifier(pub)

	err := n.Notify(context.Background(), note(reservation.TopicCancelled), note(reservation.TopicPromoted))
	require.NoError(t, err)
	assert.Len(t, pub.messages, 2)
	assert.Contains(t, pub.messages, reservation.TopicPromoted)

	// every message carries its own topic, not the last one in the batch
	for topic, msg := range pub.messages {
		sent, ok := msg.(reservation.Notification)
		require.True(t, ok)
		assert.Equal(t, topic, sent.Topic)
	}
}

func TestMQNotifier_BreakerOpensOnBrokerFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection reset")}
	n := newMQNotifier(pub)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.Error(t, n.Notify(ctx, note(reservation.TopicAssigned)))
	}
	assert.Equal(t, circuitbreaker.StateOpen, n.breaker.State())

	err := n.Notify(ctx, note(reservation.TopicAssigned))
	assert.ErrorIs(t, err, circuitbreaker.ErrOpenState)
	assert.Equal(t, 5, pub.calls)
}

func TestMQNotifier_SurvivesCancelledRequest(t *testing.T) {
	pub := &fakePublisher{}
	n := newMQNotifier(pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, n.Notify(ctx, note(reservation.TopicReturned)))
	assert.Equal(t, 1, pub.calls)
}

func TestNoopNotifier(t *testing.T) {
	assert.NoError(t, NoopNotifier{}.Notify(context.Background(), note(reservation.TopicQueued)))
}

func TestAuditHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handle := NewAuditHandler(zap.New(core))

	body, err := json.Marshal(reservation.Notification{
		Topic:         reservation.TopicPromoted,
		ReservationID: 7,
		UserID:        8,
		BookID:        9,
		Status:        "assigned",
		OccurredAt:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, handle(context.Background(), mq.Delivery{RoutingKey: reservation.TopicPromoted, Body: body}))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, reservation.TopicPromoted, fields["topic"])
	assert.EqualValues(t, 8, fields["user_id"])

	err = handle(context.Background(), mq.Delivery{RoutingKey: "reservation.bad", Body: []byte("{")})
	assert.Error(t, err)
}
