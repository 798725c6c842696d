package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/Autopost/internal/domain"
)

// Handler обрабатывает событие.
// Ошибка возвращает сообщение в очередь (nack с requeue).
type Handler func(ctx context.Context, ev domain.Event, msg *Message) error

// Consumer читает события из очереди.
type Consumer struct {
	conn     *Connection
	queue    Queue
	handler  Handler
	prefetch int
	logger   *slog.Logger
}

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	Queue    Queue // default: QueueEvents
	Handler  Handler
	Prefetch int // default: 10
	Logger   *slog.Logger
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, cfg ConsumerConfig) *Consumer {
	queue := cfg.Queue
	if queue == "" {
		queue = QueueEvents
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		conn:     conn,
		queue:    queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
		logger:   logger,
	}
}

// Run читает очередь до отмены ctx.
// После разрыва соединения ждёт переподключения и продолжает.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "queue", c.queue, "error", err)
		} else {
			c.logger.Info("consumer started", "queue", c.queue)
			if err := c.drain(ctx, deliveries); err == nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, waiting for reconnect", "queue", c.queue)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		string(c.queue), // queue
		"",              // consumer tag (auto-generated)
		false,           // auto-ack
		false,           // exclusive
		false,           // no-local
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queue, err)
	}

	return deliveries, nil
}

// drain обрабатывает доставки. nil — ctx отменён, иначе канал закрыт.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			c.handle(ctx, raw)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	msg, ev, err := decodeDelivery(raw.Body)
	if err != nil {
		c.logger.Error("failed to decode message",
			"queue", c.queue,
			"error", err,
			"body", string(raw.Body),
		)
		// Неразобранное сообщение — в DLQ
		_ = raw.Nack(false, false)
		return
	}

	if err := c.handler(ctx, ev, msg); err != nil {
		c.logger.Error("handler failed",
			"queue", c.queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
		_ = raw.Nack(false, true)
		return
	}

	_ = raw.Ack(false)
}

// decodeDelivery разбирает тело сообщения в конверт и событие.
func decodeDelivery(body []byte) (*Message, domain.Event, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, domain.Event{}, fmt.Errorf("unmarshal message: %w", err)
	}

	switch msg.Type {
	case domain.EventPostScheduled, domain.EventPostPublished, domain.EventPostDeleted:
	default:
		return nil, domain.Event{}, fmt.Errorf("unknown message type %q", msg.Type)
	}

	ev, err := msg.Event()
	if err != nil {
		return nil, domain.Event{}, err
	}
	return &msg, ev, nil
}
