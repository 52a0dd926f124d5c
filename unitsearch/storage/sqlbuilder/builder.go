// Package sqlbuilder allocates bind placeholders for generated SQL.
package sqlbuilder

import (
	"strconv"
	"strings"
)

type PlaceholderStyle int

const (
	// PlaceholderQuestion is the sqlite and mysql style: every
	// placeholder is "?" and binds by position.
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar is the postgres style: $1, $2, ...
	PlaceholderDollar
)

func (s PlaceholderStyle) String() string {
	if s == PlaceholderDollar {
		return "dollar"
	}
	return "question"
}

// Builder allocates placeholders and collects their arguments in the
// order the placeholders appear in the statement text. Callers must emit
// SQL fragments in the same order they call Arg.
type Builder struct {
	Style PlaceholderStyle
	args  []any
}

func New(style PlaceholderStyle) *Builder {
	return &Builder{Style: style}
}

// Arg binds v and returns its placeholder.
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	if b.Style == PlaceholderDollar {
		return "$" + strconv.Itoa(len(b.args))
	}
	return "?"
}

// List binds every value and returns the comma separated placeholders,
// for use inside IN (...).
func List[T any](b *Builder, vals []T) string {
	var sb strings.Builder
	for i, v := range vals {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.Arg(v))
	}
	return sb.String()
}

func (b *Builder) Args() []any { return b.args }
func (b *Builder) Len() int    { return len(b.args) }
