package planner

import (
	"fmt"
	"strings"
	"time"
)

// Column identifies where a store keeps a field's values
type Column int

const (
	ColID   Column = iota // the record identifier itself
	ColText               // one string per record
	ColSet                // zero or more strings per record
	ColInt
	ColBool
	ColTime
)

func (c Column) String() string {
	switch c {
	case ColID:
		return "id"
	case ColText:
		return "text"
	case ColSet:
		return "set"
	case ColInt:
		return "int"
	case ColBool:
		return "bool"
	case ColTime:
		return "time"
	default:
		return "?"
	}
}

// Accessor is a resolved reference to a stored field
type Accessor struct {
	Field    string
	Column   Column
	Optional bool
}

// closed reports whether every record holds exactly one value, so that
// a comparison can be negated by flipping its operator.
func (a Accessor) closed() bool {
	return a.Column != ColSet && !a.Optional
}

// Predicate is a compiled, backend-neutral filter
type Predicate interface {
	isPredicate()
}

// And matches records matched by both sides
type And struct {
	Left  Predicate
	Right Predicate
}

func (And) isPredicate() {}

// Or matches records matched by either side
type Or struct {
	Left  Predicate
	Right Predicate
}

func (Or) isPredicate() {}

// Not matches every record its child does not
type Not struct {
	Inner Predicate
}

func (Not) isPredicate() {}

// MatchAll matches every record
type MatchAll struct{}

func (MatchAll) isPredicate() {}

// TextMode selects how TextMatch compares strings
type TextMode int

const (
	TextContains TextMode = iota // case-insensitive substring
	TextRegex                    // store's regex dialect, pattern passed verbatim
)

func (m TextMode) String() string {
	if m == TextRegex {
		return "regex"
	}
	return "contains"
}

// TextMatch matches a text or set field. Set fields match if any element
// matches.
type TextMatch struct {
	Field Accessor
	Mode  TextMode
	Value string
}

func (TextMatch) isPredicate() {}

// In matches single-valued string fields equal to one of Values. With
// Negate it matches records whose value is in none of them. An empty
// Values matches nothing.
type In struct {
	Field  Accessor
	Values []string
	Fold   bool
	Negate bool
}

func (In) isPredicate() {}

// Has matches set fields containing at least one of Values
type Has struct {
	Field  Accessor
	Values []string
	Fold   bool
}

func (Has) isPredicate() {}

// CmpOp is a comparison operator
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpGt
	CmpGte
	CmpLt
	CmpLte
)

func (op CmpOp) String() string {
	switch op {
	case CmpEq:
		return "="
	case CmpNe:
		return "<>"
	case CmpGt:
		return ">"
	case CmpGte:
		return ">="
	case CmpLt:
		return "<"
	case CmpLte:
		return "<="
	default:
		return "?"
	}
}

// Negate returns the complementary operator.
func (op CmpOp) Negate() CmpOp {
	switch op {
	case CmpEq:
		return CmpNe
	case CmpNe:
		return CmpEq
	case CmpGt:
		return CmpLte
	case CmpGte:
		return CmpLt
	case CmpLt:
		return CmpGte
	default:
		return CmpGt
	}
}

// Eval applies op to the result of a three-way comparison.
func (op CmpOp) Eval(cmp int) bool {
	switch op {
	case CmpEq:
		return cmp == 0
	case CmpNe:
		return cmp != 0
	case CmpGt:
		return cmp > 0
	case CmpGte:
		return cmp >= 0
	case CmpLt:
		return cmp < 0
	default:
		return cmp <= 0
	}
}

// IntCmp compares an integer field
type IntCmp struct {
	Field Accessor
	Op    CmpOp
	Value int64
}

func (IntCmp) isPredicate() {}

// IntRange matches Lo <= value <= Hi
type IntRange struct {
	Field Accessor
	Lo    int64
	Hi    int64
}

func (IntRange) isPredicate() {}

// TimeCmp compares a timestamp field
type TimeCmp struct {
	Field Accessor
	Op    CmpOp
	Value time.Time
}

func (TimeCmp) isPredicate() {}

// TimeRange matches Start <= value < End
type TimeRange struct {
	Field Accessor
	Start time.Time
	End   time.Time
}

func (TimeRange) isPredicate() {}

// BoolEq matches a boolean field
type BoolEq struct {
	Field Accessor
	Value bool
}

func (BoolEq) isPredicate() {}

// AllWords matches when every word is a case-insensitive substring of at
// least one of Fields.
type AllWords struct {
	Fields []Accessor
	Words  []string
}

func (AllWords) isPredicate() {}

// SortKey is one ordering key
type SortKey struct {
	Field Accessor
	Desc  bool
	// Rank orders an enum field by ordinal instead of by spelling.
	// Values outside Rank sort after every ranked value.
	Rank []string
}

// Ordinal returns the position of v in Rank.
func (k SortKey) Ordinal(v string) int {
	for i, r := range k.Rank {
		if r == v {
			return i
		}
	}
	return len(k.Rank)
}

func (k SortKey) String() string {
	if k.Desc {
		return "-" + k.Field.Field
	}
	return k.Field.Field
}

// Describe renders a predicate for explain output.
func Describe(p Predicate) string {
	var sb strings.Builder
	describe(&sb, p)
	return sb.String()
}

func describe(sb *strings.Builder, p Predicate) {
	switch q := p.(type) {
	case And:
		sb.WriteString("(and ")
		describe(sb, q.Left)
		sb.WriteByte(' ')
		describe(sb, q.Right)
		sb.WriteByte(')')
	case Or:
		sb.WriteString("(or ")
		describe(sb, q.Left)
		sb.WriteByte(' ')
		describe(sb, q.Right)
		sb.WriteByte(')')
	case Not:
		sb.WriteString("(not ")
		describe(sb, q.Inner)
		sb.WriteByte(')')
	case MatchAll:
		sb.WriteString("(all)")
	case TextMatch:
		fmt.Fprintf(sb, "(%s %s %q)", q.Field.Field, q.Mode, q.Value)
	case In:
		op := "in"
		if q.Negate {
			op = "not-in"
		}
		fmt.Fprintf(sb, "(%s %s %q)", q.Field.Field, op, q.Values)
	case Has:
		fmt.Fprintf(sb, "(%s has %q)", q.Field.Field, q.Values)
	case IntCmp:
		fmt.Fprintf(sb, "(%s %s %d)", q.Field.Field, q.Op, q.Value)
	case IntRange:
		fmt.Fprintf(sb, "(%s between %d %d)", q.Field.Field, q.Lo, q.Hi)
	case TimeCmp:
		fmt.Fprintf(sb, "(%s %s %s)", q.Field.Field, q.Op, q.Value.Format(time.RFC3339))
	case TimeRange:
		fmt.Fprintf(sb, "(%s within %s %s)", q.Field.Field, q.Start.Format(time.RFC3339), q.End.Format(time.RFC3339))
	case BoolEq:
		fmt.Fprintf(sb, "(%s = %t)", q.Field.Field, q.Value)
	case AllWords:
		names := make([]string, len(q.Fields))
		for i, f := range q.Fields {
			names[i] = f.Field
		}
		fmt.Fprintf(sb, "(words %q in %s)", q.Words, strings.Join(names, ","))
	default:
		fmt.Fprintf(sb, "(? %T)", p)
	}
}
