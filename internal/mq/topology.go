package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/Autopost/internal/domain"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

// Exchanges.
const (
	ExchangePosts Exchange = "autopost.posts"
	ExchangeDLQ   Exchange = "autopost.dlq"
)

// Queues.
const (
	QueueEvents    Queue = "autopost.events"
	QueueEventsDLQ Queue = "autopost.events.dlq"
)

// Routing keys.
const (
	RoutingKeyScheduled RoutingKey = RoutingKey(domain.EventPostScheduled)
	RoutingKeyPublished RoutingKey = RoutingKey(domain.EventPostPublished)
	RoutingKeyDeleted   RoutingKey = RoutingKey(domain.EventPostDeleted)

	// RoutingKeyAllPosts — шаблон привязки для всех событий постов.
	RoutingKeyAllPosts RoutingKey = "post.#"
)

// RoutingKeyFor возвращает routing key события.
func RoutingKeyFor(t domain.EventType) RoutingKey {
	return RoutingKey(t)
}

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// Topology — объекты, которые объявляет SetupTopology.
type Topology struct {
	exchanges []exchangeDecl
	queues    []queueDecl
	bindings  []bindingDecl
}

// DefaultTopology возвращает топологию событий постов.
func DefaultTopology() Topology {
	return Topology{
		exchanges: []exchangeDecl{
			{ExchangePosts, amqp.ExchangeTopic},
			{ExchangeDLQ, amqp.ExchangeFanout},
		},
		queues: []queueDecl{
			// Неразобранные сообщения уходят в DLQ
			{QueueEvents, amqp.Table{"x-dead-letter-exchange": string(ExchangeDLQ)}},
			{QueueEventsDLQ, nil},
		},
		bindings: []bindingDecl{
			{QueueEvents, RoutingKeyAllPosts, ExchangePosts},
			{QueueEventsDLQ, "", ExchangeDLQ},
		},
	}
}

// SetupTopology объявляет exchanges, queues и bindings. Операция идемпотентна.
func SetupTopology(conn *Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	return DefaultTopology().declare(ch)
}

func (t Topology) declare(ch *amqp.Channel) error {
	for _, ex := range t.exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	for _, q := range t.queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	for _, b := range t.bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Autopost RabbitMQ Topology:

    autopost.posts (topic)
    └── autopost.events [routing: post.#]
            Consumer: autopost events, platform adapters
            DLQ: autopost.dlq

    autopost.dlq (fanout)
    └── autopost.events.dlq
            Manual processing
  `
}
