package timezone

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shaiso/Autopost/internal/domain"
)

// relativeRe — относительное время: "90s", "30m", "1h", "2d".
var relativeRe = regexp.MustCompile(`^(\d+)\s*([smhd])$`)

const cronPrefix = "cron:"

// ParseWhen разбирает пользовательское время публикации относительно now в зоне loc.
//
// Форматы:
//   - "30s", "45m", "2h", "1d"   — через заданный интервал
//   - "tomorrow 14:30"           — завтра в 14:30
//   - "14:30"                    — сегодня в 14:30, или завтра, если время прошло
//   - "2026-02-23 14:30"         — конкретная дата (wall clock в loc)
//   - "cron:0 9 * * 1"           — ближайшее срабатывание cron-выражения
//
// Результат возвращается в зоне loc.
func ParseWhen(input string, now time.Time, loc *time.Location) (time.Time, error) {
	raw := strings.TrimSpace(input)
	s := strings.ToLower(raw)
	now = now.In(loc)

	if strings.HasPrefix(s, cronPrefix) {
		next, err := NextCronTime(strings.TrimSpace(raw[len(cronPrefix):]), now, loc)
		if err != nil {
			return time.Time{}, domain.NewValidationError("when", err.Error(), err)
		}
		return next, nil
	}

	if m := relativeRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, whenError(raw)
		}
		unit := unitDuration(m[2])
		if n > math.MaxInt64/int64(unit) {
			return time.Time{}, whenError(raw)
		}
		return now.Add(time.Duration(n) * unit), nil
	}

	if rest, ok := strings.CutPrefix(s, "tomorrow"); ok {
		hour, min, err := parseClock(strings.TrimSpace(rest))
		if err != nil {
			return time.Time{}, whenError(raw)
		}
		return time.Date(now.Year(), now.Month(), now.Day()+1, hour, min, 0, 0, loc), nil
	}

	if t, err := time.ParseInLocation("2006-01-02 15:04", s, loc); err == nil {
		return t, nil
	}

	if hour, min, err := parseClock(s); err == nil {
		target := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, loc)
		if target.Before(now) {
			target = time.Date(now.Year(), now.Month(), now.Day()+1, hour, min, 0, 0, loc)
		}
		return target, nil
	}

	return time.Time{}, whenError(raw)
}

// parseClock разбирает "HH:MM".
func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

func unitDuration(unit string) time.Duration {
	switch unit {
	case "s":
		return time.Second
	case "m":
		return time.Minute
	case "h":
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

func whenError(input string) error {
	return domain.NewValidationError("when",
		fmt.Sprintf("unsupported time %q (use 14:30, tomorrow 10:00, 2026-01-15 15:30, 2h, 45m, cron:EXPR)", input),
		nil,
	)
}
