// Package mq is a thin RabbitMQ layer: a JSON publisher on a durable
// exchange and a manually acknowledged consumer on a durable queue.
// Trace context travels in the message headers.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/metrics"
)

// Publisher sends JSON messages to one exchange. It is safe for concurrent use.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewPublisher dials url and declares a durable exchange of exchangeType
// (direct, topic, fanout).
func NewPublisher(url, exchange, exchangeType string) (*Publisher, error) {
	conn, channel, err := open(url, exchange, exchangeType)
	if err != nil {
		return nil, err
	}

	logger.L().Info("mq publisher ready", zap.String("exchange", exchange), zap.String("type", exchangeType))
	return &Publisher{conn: conn, channel: channel, exchange: exchange}, nil
}

// Publish marshals message to JSON and sends it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, tableCarrier(headers))

	p.mu.Lock()
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		Headers:      headers,
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	metrics.IncPublished(p.exchange, routingKey)
	logger.L().Debug("message published", zap.String("routing_key", routingKey), zap.Int("bytes", len(body)))
	return nil
}

func (p *Publisher) Close() error {
	return closeAll(p.channel, p.conn)
}

// Delivery is one received message.
type Delivery struct {
	RoutingKey string
	Body       []byte
	Timestamp  time.Time
}

// Handler processes a delivery. ctx carries the publisher's trace context.
type Handler func(ctx context.Context, d Delivery) error

// Consumer reads one durable queue bound to an exchange.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewConsumer declares exchange and queue and binds queue with every
// routing key (topic wildcards allowed).
func NewConsumer(url, exchange, exchangeType, queue string, routingKeys []string) (*Consumer, error) {
	conn, channel, err := open(url, exchange, exchangeType)
	if err != nil {
		return nil, err
	}

	q, err := channel.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		_ = closeAll(channel, conn)
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	for _, key := range routingKeys {
		if err := channel.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			_ = closeAll(channel, conn)
			return nil, fmt.Errorf("bind queue %s to %s: %w", q.Name, key, err)
		}
	}

	logger.L().Info("mq consumer ready", zap.String("queue", q.Name), zap.Strings("routing_keys", routingKeys))
	return &Consumer{conn: conn, channel: channel, queue: q.Name}, nil
}

// Consume delivers messages one at a time until ctx is done. A failed
// message is requeued once and dropped when it fails again.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	log := logger.L().With(zap.String("queue", c.queue))
	log.Info("consuming")

	for {
		select {
		case <-ctx.Done():
			log.Info("consumer stopped")
			return nil

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handle(ctx, log, msg, handler)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, log *zap.Logger, msg amqp.Delivery, handler Handler) {
	start := time.Now()
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, tableCarrier(msg.Headers))

	err := handler(msgCtx, Delivery{RoutingKey: msg.RoutingKey, Body: msg.Body, Timestamp: msg.Timestamp})
	if err == nil {
		_ = msg.Ack(false)
		metrics.ObserveConsumed(c.queue, "success", time.Since(start))
		return
	}

	metrics.ObserveConsumed(c.queue, "failure", time.Since(start))
	requeue := !msg.Redelivered
	log.Warn("message handling failed",
		zap.String("routing_key", msg.RoutingKey),
		zap.Bool("requeue", requeue),
		zap.Error(err),
	)
	_ = msg.Nack(false, requeue)
}

func (c *Consumer) Close() error {
	return closeAll(c.channel, c.conn)
}

func open(url, exchange, exchangeType string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, exchangeType, true, false, false, false, nil); err != nil {
		_ = closeAll(channel, conn)
		return nil, nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return conn, channel, nil
}

func closeAll(channel *amqp.Channel, conn *amqp.Connection) error {
	if channel != nil {
		_ = channel.Close()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// tableCarrier adapts AMQP headers to the OpenTelemetry TextMapCarrier.
type tableCarrier amqp.Table

func (c tableCarrier) Get(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c tableCarrier) Set(key, value string) {
	c[key] = value
}

func (c tableCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
