package fields

import (
	"strconv"
	"strings"
	"time"
)

// ResolveDate resolves a relative date phrase against now. Results are
// truncated to local midnight in now's location. It returns false for any
// phrase outside the recognized set:
//
//	today, yesterday, N days ago, N weeks ago, N months ago,
//	last month, last year
func ResolveDate(phrase string, now time.Time) (time.Time, bool) {
	span, ok := ResolveDateRange(phrase, now)
	if !ok {
		return time.Time{}, false
	}
	return span.Start, true
}

// ResolveDateRange is ResolveDate returning the whole period the phrase
// names: one day for day phrases, the calendar month for "last month"
// and the calendar year for "last year".
func ResolveDateRange(phrase string, now time.Time) (TimeSpan, bool) {
	words := strings.Fields(strings.ToLower(phrase))
	today := midnight(now)

	switch len(words) {
	case 1:
		switch words[0] {
		case "today":
			return daySpan(today), true
		case "yesterday":
			return daySpan(today.AddDate(0, 0, -1)), true
		}
	case 2:
		if words[0] != "last" {
			return TimeSpan{}, false
		}
		switch words[1] {
		case "month":
			start := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
			return TimeSpan{Start: start, End: start.AddDate(0, 1, 0)}, true
		case "year":
			start := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, now.Location())
			return TimeSpan{Start: start, End: start.AddDate(1, 0, 0)}, true
		}
	case 3:
		if words[2] != "ago" {
			return TimeSpan{}, false
		}
		n, err := strconv.Atoi(words[0])
		if err != nil || n < 0 {
			return TimeSpan{}, false
		}
		switch words[1] {
		case "day", "days":
			return daySpan(today.AddDate(0, 0, -n)), true
		case "week", "weeks":
			return daySpan(today.AddDate(0, 0, -7*n)), true
		case "month", "months":
			return daySpan(today.AddDate(0, -n, 0)), true
		}
	}
	return TimeSpan{}, false
}

// IsRelativeUnit reports whether word can follow a count in a relative
// date phrase.
func IsRelativeUnit(word string) bool {
	switch strings.ToLower(word) {
	case "day", "days", "week", "weeks", "month", "months":
		return true
	}
	return false
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func daySpan(start time.Time) TimeSpan {
	return TimeSpan{Start: start, End: start.AddDate(0, 0, 1)}
}
