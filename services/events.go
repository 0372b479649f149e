package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/yeremiapane/restaurant-pos/utils"
)

// AMQPPublisher publishes domain events to a durable topic exchange. The
// routing key is the event type, e.g. "session.paid".
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	utils.InfoLogger.Printf("rabbitmq publisher ready on exchange %s", exchange)
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func encodeEvent(event DomainEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event.Type,
		Body:         body,
	}, nil
}

// Publish is safe for concurrent use; amqp channels are not.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, event DomainEvent) error {
	pub, err := encodeEvent(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, pub); err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

var ErrEventQueueFull = errors.New("event queue is full")

const eventPublishTimeout = 5 * time.Second

type queuedEvent struct {
	routingKey string
	event      DomainEvent
}

// AsyncPublisher queues events and hands them to inner from a single worker,
// so a slow broker never holds up a request. A full queue drops the event.
type AsyncPublisher struct {
	inner EventPublisher
	queue chan queuedEvent
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsyncPublisher(inner EventPublisher, size int) *AsyncPublisher {
	if size <= 0 {
		size = 256
	}
	p := &AsyncPublisher{
		inner: inner,
		queue: make(chan queuedEvent, size),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for q := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		if err := p.inner.Publish(ctx, q.routingKey, q.event); err != nil {
			utils.ErrorLogger.Errorf("failed to publish %s for restaurant %s: %v", q.routingKey, q.event.RestaurantID, err)
		}
		cancel()
	}
}

// Publish only enqueues; ctx is not used.
func (p *AsyncPublisher) Publish(_ context.Context, routingKey string, event DomainEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("publisher closed, dropping %s", routingKey)
	}
	select {
	case p.queue <- queuedEvent{routingKey: routingKey, event: event}:
		return nil
	default:
		return fmt.Errorf("%w, dropping %s", ErrEventQueueFull, routingKey)
	}
}

// Close stops accepting events and waits for the queue to drain.
func (p *AsyncPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}
