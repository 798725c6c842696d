package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobKind — тип отложенного действия над постом.
type JobKind string

const (
	// JobKindPublish — публикация запланированного поста.
	JobKindPublish JobKind = "publish"

	// JobKindDelete — автоудаление опубликованного поста.
	JobKindDelete JobKind = "delete"
)

// String возвращает строковое представление JobKind.
func (k JobKind) String() string {
	return string(k)
}

// JobInfo — описание ожидающего job'а (только в памяти, не сохраняется).
type JobInfo struct {
	ID       uuid.UUID `json:"job_id"`
	PostID   string    `json:"post_id"`
	Kind     JobKind   `json:"kind"`
	FireTime time.Time `json:"fire_time"`
}
