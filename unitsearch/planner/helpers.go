package planner

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Builder allocates query placeholders
type Builder interface {
	Arg(v any) string
	Args() []any
	Len() int
}

// Dialect renders the string operations that differ between databases.
//
// The memory store and SQLite fold with Unicode full case folding
// (Fold), where "straße" and "STRASSE" compare equal. A dialect built on
// a database's own lower() only maps case one rune at a time, so such
// pairs do not match there.
type Dialect interface {
	// Fold lower-cases a string expression.
	Fold(expr string) string
	// Contains is a case-insensitive substring test.
	Contains(expr, needle string) string
	// Regex matches expr against a pattern placeholder.
	Regex(expr, pattern string) string
}

// Tables names the tables that hold one record kind
type Tables struct {
	Records string
	Text    string
	Int     string
	Bool    string
	Time    string
}

// TablesFor returns the table names for a record kind.
func TablesFor(kind string) Tables {
	return Tables{
		Records: kind + "_records",
		Text:    kind + "_text",
		Int:     kind + "_int",
		Bool:    kind + "_bool",
		Time:    kind + "_time",
	}
}

// valueTable returns the table holding a column kind.
func (t Tables) valueTable(col Column) string {
	switch col {
	case ColInt:
		return t.Int
	case ColBool:
		return t.Bool
	case ColTime:
		return t.Time
	default:
		return t.Text
	}
}

// EpochMS is the stored form of timestamps.
func EpochMS(t time.Time) int64 {
	return t.UnixMilli()
}

// argList allocates one placeholder per value.
func argList(b Builder, values []string, wrap func(string) string) string {
	phs := make([]string, len(values))
	for i, v := range values {
		phs[i] = wrap(b.Arg(v))
	}
	return strings.Join(phs, ", ")
}

func identity(s string) string { return s }

// Fold is the case folding every store applies for case-insensitive
// comparison.
func Fold(s string) string {
	return cases.Fold().String(s)
}
