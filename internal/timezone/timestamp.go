package timezone

import (
	"fmt"
	"strings"
	"time"

	"github.com/shaiso/Autopost/internal/domain"
)

// naiveLayouts — форматы времени без зоны.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Timestamp — момент времени, который может не нести зону (naive).
//
// Для naive значения используются только поля wall clock (дата и время суток),
// а зона задаётся при конвертации. Aware значение — конкретный момент.
type Timestamp struct {
	t     time.Time
	naive bool
}

// Naive создаёт Timestamp без зоны из полей wall clock t.
// Location самого t игнорируется.
func Naive(t time.Time) Timestamp {
	return Timestamp{t: t, naive: true}
}

// NaiveDate создаёт naive Timestamp из компонент даты и времени.
func NaiveDate(year int, month time.Month, day, hour, min, sec int) Timestamp {
	return Naive(time.Date(year, month, day, hour, min, sec, 0, time.UTC))
}

// Aware создаёт Timestamp с зоной.
func Aware(t time.Time) Timestamp {
	return Timestamp{t: t}
}

// IsNaive возвращает true, если зона не задана.
func (ts Timestamp) IsNaive() bool {
	return ts.naive
}

// IsZero возвращает true для нулевого значения.
func (ts Timestamp) IsZero() bool {
	return ts.t.IsZero()
}

// Time возвращает исходное значение time.Time.
func (ts Timestamp) Time() time.Time {
	return ts.t
}

// In интерпретирует naive значение как wall clock в loc.
// Aware значение просто проецируется в loc.
func (ts Timestamp) In(loc *time.Location) time.Time {
	if !ts.naive {
		return ts.t.In(loc)
	}
	t := ts.t
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// String возвращает RFC 3339 для aware и ISO без смещения для naive.
func (ts Timestamp) String() string {
	if ts.naive {
		return ts.t.Format("2006-01-02T15:04:05")
	}
	return ts.t.Format(time.RFC3339)
}

// ParseTimestamp разбирает строку времени.
//
// RFC 3339 ("2026-02-23T15:30:00+03:00") даёт aware значение,
// "2026-02-23T15:30", "2026-02-23 15:30:00" и подобные — naive.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Aware(t), nil
	}

	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Naive(t), nil
		}
	}

	return Timestamp{}, domain.NewValidationError("time", fmt.Sprintf("cannot parse timestamp %q", s), nil)
}
