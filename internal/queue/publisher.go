// Package queue moves committed workflow events through a durable RabbitMQ queue.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	dialTimeout      = 2 * time.Second
	reconnectInitial = time.Second
	reconnectMax     = 30 * time.Second
)

// ErrPublisherUnavailable is returned while the broker connection is down.
var ErrPublisherUnavailable = errors.New("rabbitmq publisher unavailable")

// dial connects with a bounded TCP connect timeout instead of the library's 30s.
func dial(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Dial:      amqp.DefaultDial(timeout),
	})
}

// Publisher implements domain.EventPublisher on one long-lived channel.
// Publish never dials: when the channel drops, a background loop redials
// with backoff and publishes fail fast with ErrPublisherUnavailable until
// it is back.
type Publisher struct {
	url         string
	queue       string
	logger      *zap.Logger
	dialTimeout time.Duration

	mu   sync.RWMutex
	conn *amqp.Connection
	ch   *amqp.Channel

	pubMu        sync.Mutex // one writer on the channel at a time
	reconnecting atomic.Bool
	done         chan struct{}
	closeOnce    sync.Once
}

// NewPublisher dials the broker and declares the queue
func NewPublisher(url, queue string, logger *zap.Logger) (*Publisher, error) {
	p := newPublisher(url, queue, dialTimeout, logger)
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func newPublisher(url, queue string, timeout time.Duration, logger *zap.Logger) *Publisher {
	return &Publisher{
		url:         url,
		queue:       queue,
		logger:      logger,
		dialTimeout: timeout,
		done:        make(chan struct{}),
	}
}

func (p *Publisher) connect() error {
	conn, err := dial(p.url, p.dialTimeout)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := declare(ch, p.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	p.mu.Lock()
	p.conn, p.ch = conn, ch
	p.mu.Unlock()

	go p.watch(closed)
	return nil
}

// watch waits for the channel to close and hands over to the reconnect loop
func (p *Publisher) watch(closed <-chan *amqp.Error) {
	select {
	case <-p.done:
		return
	case amqpErr := <-closed:
		if amqpErr != nil {
			p.logger.Warn("rabbitmq publisher channel closed", zap.Error(amqpErr))
		}
	}

	p.mu.Lock()
	p.closeLocked()
	p.mu.Unlock()
	p.reconnect()
}

// reconnect redials with backoff until it succeeds or the publisher is closed.
// Only one loop runs at a time.
func (p *Publisher) reconnect() {
	if !p.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer p.reconnecting.Store(false)

	backoff := reconnectInitial
	for {
		select {
		case <-p.done:
			return
		case <-time.After(backoff):
		}

		if err := p.connect(); err != nil {
			p.logger.Warn("rabbitmq publisher reconnect failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if backoff < reconnectMax {
				backoff *= 2
			}
			continue
		}
		p.logger.Info("rabbitmq publisher reconnected")
		return
	}
}

// declare makes sure the durable queue exists
func declare(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	return nil
}

// Publish sends e as a persistent JSON message to the queue. It returns
// ErrPublisherUnavailable at once while disconnected.
func (p *Publisher) Publish(ctx context.Context, e domain.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.RLock()
	ch := p.ch
	p.mu.RUnlock()
	if ch == nil || ch.IsClosed() {
		select {
		case <-p.done:
		default:
			go p.reconnect()
		}
		return ErrPublisherUnavailable
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Type:         string(e.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.pubMu.Lock()
	defer p.pubMu.Unlock()
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		msg,
	); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// Close stops the reconnect loop and shuts the channel and connection
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
