package domain

import (
	"fmt"
	"math"
	"time"
)

// PostStatus — статус поста.
//
// Жизненный цикл:
//
//	SCHEDULED → PUBLISHED → (удалён)
//	          ↘ (удалён)
//
// Удалённый пост не хранится вовсе, поэтому отдельного статуса нет.
type PostStatus string

const (
	// PostStatusScheduled — пост ждёт публикации в ScheduledFor.
	PostStatusScheduled PostStatus = "scheduled"

	// PostStatusPublished — пост опубликован в PublishedAt.
	PostStatusPublished PostStatus = "published"
)

// String возвращает строковое представление PostStatus.
func (s PostStatus) String() string {
	return string(s)
}

// IsValid проверяет, что статус из допустимого набора.
func (s PostStatus) IsValid() bool {
	switch s {
	case PostStatusScheduled, PostStatusPublished:
		return true
	default:
		return false
	}
}

// ParsePostStatus парсит строку в PostStatus.
// Пустая строка означает «без фильтра» и возвращается как есть.
func ParsePostStatus(s string) (PostStatus, error) {
	status := PostStatus(s)
	if s == "" || status.IsValid() {
		return status, nil
	}
	return "", NewValidationError("status", fmt.Sprintf("unknown post status %q", s), nil)
}

// Post — единица контента с расписанием публикации и удаления.
type Post struct {
	// ID — уникальный идентификатор поста, не переиспользуется.
	ID string `json:"id"`

	// Content — текст поста, не пустой.
	Content string `json:"content"`

	// Status — текущий статус.
	Status PostStatus `json:"status"`

	// ScheduledFor — время публикации. Задано только для SCHEDULED.
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`

	// PublishedAt — время публикации. Задано только для PUBLISHED.
	PublishedAt *time.Time `json:"published_at,omitempty"`

	// DeleteAfterHours — через сколько часов после публикации удалить пост.
	// Nil — не удалять.
	DeleteAfterHours *float64 `json:"delete_after_hours,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// DeleteAt возвращает момент автоудаления, если он определён.
// Для SCHEDULED поста отсчёт идёт от ScheduledFor.
func (p *Post) DeleteAt() (time.Time, bool) {
	if p.DeleteAfterHours == nil {
		return time.Time{}, false
	}

	var base time.Time
	switch {
	case p.PublishedAt != nil:
		base = *p.PublishedAt
	case p.ScheduledFor != nil:
		base = *p.ScheduledFor
	default:
		return time.Time{}, false
	}

	return base.Add(HoursToDuration(*p.DeleteAfterHours)), true
}

// MarkPublished переводит пост в PUBLISHED.
func (p *Post) MarkPublished(at time.Time) {
	p.Status = PostStatusPublished
	p.PublishedAt = &at
	p.ScheduledFor = nil
}

// Validate проверяет инварианты поста:
// ровно одно из ScheduledFor/PublishedAt задано и соответствует Status.
func (p *Post) Validate() error {
	if p.ID == "" {
		return NewValidationError("id", "post id is empty", nil)
	}
	if p.Content == "" {
		return NewValidationError("content", "post content is empty", ErrEmptyContent)
	}
	if p.DeleteAfterHours != nil && !ValidDeleteAfterHours(*p.DeleteAfterHours) {
		return NewValidationError("delete_after_hours",
			fmt.Sprintf("delete_after_hours must be between 0 and %v", MaxDeleteAfterHours), nil)
	}

	switch p.Status {
	case PostStatusScheduled:
		if p.ScheduledFor == nil || p.PublishedAt != nil {
			return NewValidationError("scheduled_for", "scheduled post must have only scheduled_for", nil)
		}
	case PostStatusPublished:
		if p.PublishedAt == nil || p.ScheduledFor != nil {
			return NewValidationError("published_at", "published post must have only published_at", nil)
		}
	default:
		return NewValidationError("status", fmt.Sprintf("unknown post status %q", p.Status), nil)
	}

	return nil
}

// Clone возвращает глубокую копию поста.
// Store и Manager отдают наружу только копии.
func (p *Post) Clone() *Post {
	cp := *p
	if p.ScheduledFor != nil {
		t := *p.ScheduledFor
		cp.ScheduledFor = &t
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		cp.PublishedAt = &t
	}
	if p.DeleteAfterHours != nil {
		h := *p.DeleteAfterHours
		cp.DeleteAfterHours = &h
	}
	return &cp
}

// MaxDeleteAfterHours — наибольший интервал удаления, представимый в time.Duration.
const MaxDeleteAfterHours = float64(math.MaxInt64 / int64(time.Hour))

// ValidDeleteAfterHours сообщает, является ли hours допустимым интервалом удаления.
func ValidDeleteAfterHours(hours float64) bool {
	return !math.IsNaN(hours) && hours >= 0 && hours <= MaxDeleteAfterHours
}

// HoursToDuration переводит дробное число часов в time.Duration.
// hours должен удовлетворять ValidDeleteAfterHours.
func HoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
