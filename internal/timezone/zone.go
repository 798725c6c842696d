package timezone

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // встроенная база зон

	"github.com/shaiso/Autopost/internal/domain"
)

// DefaultCanonicalZone — каноническая зона по умолчанию (новосибирское время).
const DefaultCanonicalZone = "UTC+07:00"

// ErrUnknownZone — имя зоны не распознано.
// Одновременно является ошибкой конфигурации.
var ErrUnknownZone = fmt.Errorf("%w: unknown time zone", domain.ErrConfiguration)

// fixedOffsetRe — фиксированное смещение: "UTC+7", "UTC+07:00", "GMT-3", "+0530".
var fixedOffsetRe = regexp.MustCompile(`^(?:UTC|GMT)?([+-])(\d{1,2})(?::?(\d{2}))?$`)

// ParseZone возвращает зону по имени.
//
// Поддерживаются IANA-имена ("Europe/Moscow", "Asia/Novosibirsk") и
// фиксированные смещения ("UTC", "UTC+7", "UTC+07:00", "+05:30").
// Пустое имя означает UTC.
func ParseZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}

	upper := strings.ToUpper(name)
	if upper == "UTC" || upper == "GMT" || upper == "Z" {
		return time.UTC, nil
	}

	if m := fixedOffsetRe.FindStringSubmatch(upper); m != nil {
		return fixedZone(name, m)
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, domain.NewValidationError("zone", fmt.Sprintf("unknown time zone %q", name), ErrUnknownZone)
	}
	return loc, nil
}

// fixedZone строит зону с фиксированным смещением из результата fixedOffsetRe.
func fixedZone(name string, m []string) (*time.Location, error) {
	hours, _ := strconv.Atoi(m[2])
	minutes := 0
	if m[3] != "" {
		minutes, _ = strconv.Atoi(m[3])
	}

	if hours > 14 || minutes > 59 {
		return nil, domain.NewValidationError("zone", fmt.Sprintf("offset out of range in %q", name), ErrUnknownZone)
	}

	offset := hours*3600 + minutes*60
	if m[1] == "-" {
		offset = -offset
	}

	return time.FixedZone(fmt.Sprintf("UTC%s%02d:%02d", m[1], hours, minutes), offset), nil
}

// MustParseZone — как ParseZone, но паникует при ошибке. Для констант и тестов.
func MustParseZone(name string) *time.Location {
	loc, err := ParseZone(name)
	if err != nil {
		panic(err)
	}
	return loc
}
