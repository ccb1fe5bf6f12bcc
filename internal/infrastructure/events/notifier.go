// Package events delivers reservation notifications to RabbitMQ and reads
// them back for auditing.
package events

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/mq"
)

const breakerName = "rabbitmq"

// messagePublisher is the part of *mq.Publisher the notifier needs.
type messagePublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// MQNotifier publishes each notification with its topic as routing key.
// A breaker stops publishing while the broker keeps failing so requests
// do not wait on it.
type MQNotifier struct {
	publisher messagePublisher
	breaker   *circuitbreaker.CircuitBreaker
	timeout   time.Duration
}

// NewMQNotifier connects to the broker and declares the topic exchange.
// The returned cleanup closes the connection.
func NewMQNotifier(cfg config.MQConfig) (*MQNotifier, func(), error) {
	pub, err := mq.NewPublisher(cfg.URL, cfg.Exchange, "topic")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := pub.Close(); err != nil {
			logger.L().Warn("close mq publisher failed", zap.Error(err))
		}
	}
	return newMQNotifier(pub), cleanup, nil
}

func newMQNotifier(pub messagePublisher) *MQNotifier {
	breaker := circuitbreaker.New(breakerName, circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(c circuitbreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.SetBreakerState(name, int(to))
			logger.L().Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
	metrics.SetBreakerState(breakerName, int(circuitbreaker.StateClosed))

	return &MQNotifier{publisher: pub, breaker: breaker, timeout: 2 * time.Second}
}

// Notify publishes notes in order and returns the joined failures.
func (n *MQNotifier) Notify(ctx context.Context, notes ...reservation.Notification) error {
	// the request may finish before the broker answers
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	var errs []error
	for _, note := range notes {
		err := n.breaker.Execute(func() error {
			return n.publisher.Publish(ctx, note.Topic, note)
		})

		switch {
		case err == nil:
			metrics.IncBreakerRequest(breakerName, "success")
		case errors.Is(err, circuitbreaker.ErrOpenState), errors.Is(err, circuitbreaker.ErrTooManyRequests):
			metrics.IncBreakerRequest(breakerName, "rejected")
			errs = append(errs, err)
		default:
			metrics.IncBreakerRequest(breakerName, "failure")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NoopNotifier drops notifications; used when mq.enabled is false.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, notes ...reservation.Notification) error {
	for _, note := range notes {
		logger.L().Debug("notification dropped",
			zap.String("topic", note.Topic),
			zap.Uint("reservation_id", note.ReservationID),
		)
	}
	return nil
}
