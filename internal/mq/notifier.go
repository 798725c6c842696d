package mq

import (
	"context"

	"github.com/shaiso/Autopost/internal/domain"
)

// Notifier публикует события постов в RabbitMQ.
// Реализует autopost.Notifier.
type Notifier struct {
	publisher *Publisher
}

// NewNotifier создаёт Notifier поверх Publisher.
func NewNotifier(p *Publisher) *Notifier {
	return &Notifier{publisher: p}
}

// Notify публикует событие.
func (n *Notifier) Notify(ctx context.Context, ev domain.Event) error {
	return n.publisher.PublishEvent(ctx, ev)
}
