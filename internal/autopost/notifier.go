package autopost

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shaiso/Autopost/internal/domain"
)

// Notifier получает события о переходах постов.
//
// Адаптеры площадок (Telegram, VK и т.п.) реализуют этот интерфейс
// и используют только PostID и Content события.
type Notifier interface {
	Notify(ctx context.Context, event domain.Event) error
}

// NotifierFunc позволяет использовать функцию как Notifier.
type NotifierFunc func(ctx context.Context, event domain.Event) error

// Notify реализует Notifier.
func (f NotifierFunc) Notify(ctx context.Context, event domain.Event) error {
	return f(ctx, event)
}

// NopNotifier игнорирует события.
type NopNotifier struct{}

// Notify реализует Notifier.
func (NopNotifier) Notify(context.Context, domain.Event) error { return nil }

// LogNotifier пишет события в лог.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify реализует Notifier.
func (n LogNotifier) Notify(ctx context.Context, event domain.Event) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{
		"type", event.Type,
		"post_id", event.PostID,
		"at", event.At,
	}
	if event.Reason != "" {
		attrs = append(attrs, "reason", event.Reason)
	}

	logger.InfoContext(ctx, "post event", attrs...)
	return nil
}

// MultiNotifier рассылает событие всем Notifier'ам по очереди.
// Ошибка одного не мешает остальным, ошибки объединяются.
type MultiNotifier []Notifier

// Notify реализует Notifier.
func (m MultiNotifier) Notify(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
