package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one event. An error rejects the message without requeue.
type Handler func(ctx context.Context, e domain.Event) error

// Consumer reads events from the queue until its context ends
type Consumer struct {
	url      string
	queue    string
	prefetch int
	logger   *zap.Logger
}

// NewConsumer creates a new consumer
func NewConsumer(url, queue string, logger *zap.Logger) *Consumer {
	return &Consumer{url: url, queue: queue, prefetch: 20, logger: logger}
}

// Run connects, consumes and reconnects with backoff. It returns when ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	backoff := time.Second
	for {
		conn, err := dial(c.url, dialTimeout)
		if err != nil {
			c.logger.Warn("rabbitmq dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consume(ctx, conn, handle)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection, handle Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.logger.Warn("set QoS failed", zap.Error(err))
	}
	if err := declare(ch, c.queue); err != nil {
		return err
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.logger.Info("consuming events", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, d, handle)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery, handle Handler) {
	e, err := Decode(d.Body)
	if err == nil {
		err = handle(ctx, e)
	}
	if err != nil {
		c.logger.Error("event handling failed",
			zap.String("message_id", d.MessageId),
			zap.String("type", d.Type),
			zap.Error(err),
		)
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

// Decode parses a message body into an event
func Decode(body []byte) (domain.Event, error) {
	var e domain.Event
	if err := json.Unmarshal(body, &e); err != nil {
		return e, fmt.Errorf("unmarshal event: %w", err)
	}
	if e.Type == "" {
		return e, errors.New("event without type")
	}
	return e, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
