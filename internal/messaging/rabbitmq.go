// Package messaging wraps a single AMQP connection and channel.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ redials lazily: a publish that finds the connection or channel
// closed (broker restart, channel error) reconnects and re-declares every
// queue declared so far before sending.
type RabbitMQ struct {
	mu      sync.Mutex
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
	queues  []string
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	r := &RabbitMQ{url: url}
	if err := r.connect(); err != nil {
		return nil, err
	}
	return r, nil
}

// connect must be called with r.mu held (or before r is shared).
func (r *RabbitMQ) connect() error {
	r.closeLocked()

	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	for _, q := range r.queues {
		if err := declare(ch, q); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return err
		}
	}

	r.conn, r.channel = conn, ch
	return nil
}

func (r *RabbitMQ) healthy() bool {
	return r.conn != nil && !r.conn.IsClosed() && r.channel != nil && !r.channel.IsClosed()
}

func (r *RabbitMQ) DeclareQueue(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.healthy() {
		if err := r.connect(); err != nil {
			return err
		}
	}
	if err := declare(r.channel, name); err != nil {
		return err
	}
	r.queues = append(r.queues, name)
	return nil
}

func declare(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

// Publish sends a persistent JSON message through the default exchange.
// amqp channels are not safe for concurrent publishing, hence the lock.
func (r *RabbitMQ) Publish(ctx context.Context, queue string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.healthy() {
		if err := r.connect(); err != nil {
			return err
		}
	}

	err := r.publish(ctx, queue, body)
	if errors.Is(err, amqp.ErrClosed) {
		if err := r.connect(); err != nil {
			return err
		}
		err = r.publish(ctx, queue, body)
	}
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

func (r *RabbitMQ) publish(ctx context.Context, queue string, body []byte) error {
	return r.channel.PublishWithContext(ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *RabbitMQ) closeLocked() error {
	if r.channel != nil {
		_ = r.channel.Close()
		r.channel = nil
	}
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}
