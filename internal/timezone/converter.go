package timezone

import (
	"time"
)

// Converter переводит время в каноническую зону.
type Converter struct {
	canonical *time.Location
	now       func() time.Time
}

// NewConverter создаёт Converter для канонической зоны zone.
// now — источник текущего времени (nil — time.Now).
func NewConverter(zone string, now func() time.Time) (*Converter, error) {
	if zone == "" {
		zone = DefaultCanonicalZone
	}

	loc, err := ParseZone(zone)
	if err != nil {
		return nil, err
	}

	if now == nil {
		now = time.Now
	}

	return &Converter{canonical: loc, now: now}, nil
}

// Location возвращает каноническую зону.
func (c *Converter) Location() *time.Location {
	return c.canonical
}

// Convert переводит ts в каноническую зону.
//
// Naive значение интерпретируется как wall clock в fromZone (пусто — UTC).
// Aware значение проецируется напрямую, fromZone игнорируется.
func (c *Converter) Convert(ts Timestamp, fromZone string) (time.Time, error) {
	if !ts.IsNaive() {
		return ts.Time().In(c.canonical), nil
	}

	from, err := ParseZone(fromZone)
	if err != nil {
		return time.Time{}, err
	}

	return ts.In(from).In(c.canonical), nil
}

// Now возвращает текущий момент в канонической зоне.
func (c *Converter) Now() time.Time {
	return c.now().In(c.canonical)
}

// Canonical проецирует t в каноническую зону.
func (c *Converter) Canonical(t time.Time) time.Time {
	return t.In(c.canonical)
}
