// Package events pushes completed-turn notifications to a message broker
// for downstream consumers (analytics, moderation).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"frostgreet/pkg/domain"
)

// TurnEvent describes one completed generation turn.
type TurnEvent struct {
	SessionID string          `json:"sessionId"`
	Kind      domain.Kind     `json:"kind"`
	TurnType  domain.TurnType `json:"turnType"`
	Request   string          `json:"request"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Publisher emits turn events. Implementations must be safe for concurrent
// use; failures are the caller's to log, never to surface to the user.
type Publisher interface {
	PublishTurn(ctx context.Context, event TurnEvent) error
	Close() error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishTurn(context.Context, TurnEvent) error { return nil }
func (NoopPublisher) Close() error                                 { return nil }

// AMQPPublisher publishes turn events to a topic exchange, routing key
// "turn.<kind>".
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = "frostgreet.turns"
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

// PublishTurn sends one event as persistent JSON.
func (p *AMQPPublisher) PublishTurn(ctx context.Context, event TurnEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	routingKey := "turn." + string(event.Kind)
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish turn: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
