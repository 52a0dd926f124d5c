package fields

import (
	"testing"
	"time"
)

var testNow = time.Date(2024, time.March, 15, 13, 45, 10, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveDate(t *testing.T) {
	cases := []struct {
		phrase string
		want   time.Time
	}{
		{"today", day(2024, time.March, 15)},
		{"Yesterday", day(2024, time.March, 14)},
		{"2 days ago", day(2024, time.March, 13)},
		{"1 day ago", day(2024, time.March, 14)},
		{"  3   WEEKS   ago ", day(2024, time.February, 23)},
		{"2 months ago", day(2024, time.January, 15)},
		{"last month", day(2024, time.February, 1)},
		{"last year", day(2023, time.January, 1)},
	}
	for _, tc := range cases {
		got, ok := ResolveDate(tc.phrase, testNow)
		if !ok {
			t.Errorf("%q: expected to resolve", tc.phrase)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("%q: expected %v, got %v", tc.phrase, tc.want, got)
		}
	}
}

func TestResolveDateIsDeterministic(t *testing.T) {
	first, _ := ResolveDate("2 days ago", testNow)
	for i := 0; i < 5; i++ {
		again, _ := ResolveDate("2 days ago", testNow)
		if !again.Equal(first) {
			t.Fatalf("expected %v, got %v", first, again)
		}
	}
	want := testNow.AddDate(0, 0, -2).Truncate(24 * time.Hour)
	if !first.Equal(want) {
		t.Errorf("expected midnight two days back %v, got %v", want, first)
	}
}

func TestResolveDateRejectsUnknownPhrases(t *testing.T) {
	for _, phrase := range []string{"", "tomorrow", "next week", "two days ago", "-1 days ago", "3 years ago", "last decade", "2 days"} {
		if _, ok := ResolveDate(phrase, testNow); ok {
			t.Errorf("%q: expected no resolution", phrase)
		}
	}
}

func TestResolveDateRangeSpans(t *testing.T) {
	span, ok := ResolveDateRange("last month", testNow)
	if !ok {
		t.Fatal("expected last month to resolve")
	}
	if !span.Start.Equal(day(2024, time.February, 1)) || !span.End.Equal(day(2024, time.March, 1)) {
		t.Errorf("unexpected span %v", span)
	}

	span, _ = ResolveDateRange("yesterday", testNow)
	if span.End.Sub(span.Start) != 24*time.Hour {
		t.Errorf("expected a one day span, got %v", span)
	}

	jan := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
	span, _ = ResolveDateRange("last month", jan)
	if !span.Start.Equal(day(2023, time.December, 1)) {
		t.Errorf("expected December of the previous year, got %v", span.Start)
	}
}

func TestResolveDateUsesLocationOfNow(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	now := time.Date(2024, time.March, 15, 1, 0, 0, 0, loc)
	got, _ := ResolveDate("today", now)
	if got.Location() != loc || got.Day() != 15 || got.Hour() != 0 {
		t.Errorf("expected local midnight, got %v", got)
	}
}
