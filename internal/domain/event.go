package domain

import "time"

// EventType — тип события жизненного цикла поста.
type EventType string

// Типы событий.
const (
	EventPostScheduled EventType = "post.scheduled"
	EventPostPublished EventType = "post.published"
	EventPostDeleted   EventType = "post.deleted"
)

// RemovalReason — причина удаления поста.
type RemovalReason string

const (
	// RemovalReasonUser — пост удалён вызовом DeletePost.
	RemovalReasonUser RemovalReason = "user"

	// RemovalReasonExpired — пост удалён job'ом автоудаления.
	RemovalReasonExpired RemovalReason = "expired"
)

// Event — событие, которое получают платформенные адаптеры (Telegram, VK, ...).
// Адаптеру достаточно PostID и Content.
type Event struct {
	Type    EventType     `json:"type"`
	PostID  string        `json:"post_id"`
	Content string        `json:"content"`
	At      time.Time     `json:"at"`
	Reason  RemovalReason `json:"reason,omitempty"`
}
