package timezone

import (
	"strconv"
	"strings"
	"time"
)

// FormatRemaining форматирует время, оставшееся до target: "2d 3h 5m".
func FormatRemaining(target, now time.Time) string {
	diff := target.Sub(now)
	if diff < 0 {
		return "passed"
	}

	days := int(diff / (24 * time.Hour))
	diff -= time.Duration(days) * 24 * time.Hour
	hours := int(diff / time.Hour)
	diff -= time.Duration(hours) * time.Hour
	minutes := int(diff / time.Minute)

	var parts []string
	if days > 0 {
		parts = append(parts, strconv.Itoa(days)+"d")
	}
	if hours > 0 {
		parts = append(parts, strconv.Itoa(hours)+"h")
	}
	if minutes > 0 {
		parts = append(parts, strconv.Itoa(minutes)+"m")
	}

	if len(parts) == 0 {
		return "less than a minute"
	}
	return strings.Join(parts, " ")
}
