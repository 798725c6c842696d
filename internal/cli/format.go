package cli

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shaiso/Autopost/internal/domain"
	"github.com/shaiso/Autopost/internal/timezone"
)

const (
	timeLayout     = "2006-01-02 15:04:05 -07:00"
	timeFormatRFC  = time.RFC3339
	maxContentCell = 40
)

var postHeaders = []string{"ID", "STATUS", "TIME", "REMAINING", "DELETE_AFTER", "CONTENT"}

// postRow форматирует пост для таблицы.
// Для SCHEDULED REMAINING — время до публикации, для PUBLISHED — до удаления.
func postRow(p *domain.Post, now time.Time) []string {
	var when, remaining string

	switch p.Status {
	case domain.PostStatusScheduled:
		when = formatTime(*p.ScheduledFor)
		remaining = timezone.FormatRemaining(*p.ScheduledFor, now)
	case domain.PostStatusPublished:
		when = formatTime(*p.PublishedAt)
		if deleteAt, ok := p.DeleteAt(); ok {
			remaining = timezone.FormatRemaining(deleteAt, now)
		}
	}

	return []string{
		p.ID,
		p.Status.String(),
		when,
		remaining,
		formatHours(p.DeleteAfterHours),
		truncate(p.Content, maxContentCell),
	}
}

func postRows(posts []*domain.Post, now time.Time) [][]string {
	rows := make([][]string, len(posts))
	for i, p := range posts {
		rows[i] = postRow(p, now)
	}
	return rows
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func formatHours(h *float64) string {
	if h == nil {
		return ""
	}
	return strconv.FormatFloat(*h, 'f', -1, 64) + "h"
}

// truncate обрезает s до n рун и заменяет переводы строк пробелами.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
