package fields

import (
	"strings"
	"time"
)

type dateLayout struct {
	layout string
	step   func(time.Time) time.Time
}

// Strict layouts, tried in order. Each carries the size of the span it
// names so that "2019-03" covers the whole month.
var dateLayouts = []dateLayout{
	{"2006", func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }},
	{"2006-01", func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }},
	{"2006-01-02", func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }},
	{"2006-01-02T15:04", func(t time.Time) time.Time { return t.Add(time.Minute) }},
	{"2006-01-02 15:04", func(t time.Time) time.Time { return t.Add(time.Minute) }},
	{"2006-01-02T15:04:05", func(t time.Time) time.Time { return t.Add(time.Second) }},
	{"2006-01-02 15:04:05", func(t time.Time) time.Time { return t.Add(time.Second) }},
}

// ParseInstant coerces raw into the span it names. Strict layouts are
// tried first, in loc, then RFC 3339 and finally relative phrases
// resolved against now.
func ParseInstant(raw string, now time.Time) (TimeSpan, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TimeSpan{}, false
	}
	for _, l := range dateLayouts {
		if len(s) != len(l.layout) {
			continue
		}
		if t, err := time.ParseInLocation(l.layout, s, now.Location()); err == nil {
			return TimeSpan{Start: t, End: l.step(t)}, true
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return TimeSpan{Start: t, End: t.Add(time.Second).Truncate(time.Second)}, true
	}
	return ResolveDateRange(s, now)
}
