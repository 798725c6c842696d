package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/Autopost/internal/domain"
)

// MessageType — тип сообщения, совпадает с типом события.
type MessageType = domain.EventType

// Message — конверт сообщения в очереди.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// EventPayload — payload события поста.
type EventPayload struct {
	PostID  string               `json:"post_id"`
	Content string               `json:"content"`
	At      time.Time            `json:"at"`
	Reason  domain.RemovalReason `json:"reason,omitempty"`
}

// NewEventMessage упаковывает событие в Message.
func NewEventMessage(ev domain.Event, now time.Time) (*Message, error) {
	payload, err := json.Marshal(EventPayload{
		PostID:  ev.PostID,
		Content: ev.Content,
		At:      ev.At,
		Reason:  ev.Reason,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return &Message{
		ID:        uuid.New().String(),
		Type:      ev.Type,
		Payload:   payload,
		Timestamp: now,
	}, nil
}

// Event распаковывает событие из Message.
func (m *Message) Event() (domain.Event, error) {
	var p EventPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return domain.Event{}, fmt.Errorf("unmarshal payload: %w", err)
	}

	return domain.Event{
		Type:    m.Type,
		PostID:  p.PostID,
		Content: p.Content,
		At:      p.At,
		Reason:  p.Reason,
	}, nil
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn     *Connection
	exchange Exchange
	logger   *slog.Logger
	now      func() time.Time
}

// PublisherConfig — конфигурация Publisher.
type PublisherConfig struct {
	Exchange Exchange // default: ExchangePosts
	Logger   *slog.Logger
}

// NewPublisher создаёт Publisher поверх соединения.
func NewPublisher(conn *Connection, cfg PublisherConfig) *Publisher {
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = ExchangePosts
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		conn:     conn,
		exchange: exchange,
		logger:   logger,
		now:      time.Now,
	}
}

// Publish публикует сообщение с routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx,
		string(p.exchange), // exchange
		string(routingKey), // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Type:         string(msg.Type),
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", p.exchange, routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", p.exchange,
		"routing_key", routingKey,
		"message_id", msg.ID,
		"type", msg.Type,
	)

	return nil
}

// PublishEvent публикует событие поста с routing key по его типу.
func (p *Publisher) PublishEvent(ctx context.Context, ev domain.Event) error {
	msg, err := NewEventMessage(ev, p.now())
	if err != nil {
		return err
	}
	return p.Publish(ctx, RoutingKeyFor(ev.Type), msg)
}
