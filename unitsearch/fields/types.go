package fields

import (
	"fmt"
	"strings"
	"time"
)

// ValueType is the storage type of a field
type ValueType int

const (
	Text ValueType = iota
	Keyword
	Boolean
	Integer
	Timestamp
	Identifier
)

func (t ValueType) String() string {
	switch t {
	case Text:
		return "text"
	case Keyword:
		return "keyword"
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Timestamp:
		return "timestamp"
	case Identifier:
		return "identifier"
	default:
		return "unknown"
	}
}

// Operator is a field-level match operator
type Operator int

const (
	Equals Operator = iota
	ExactEquals
	Contains
	Gte
	Gt
	Lte
	Lt
	InRange
	MatchesRegex
	HasAttribute
)

func (op Operator) String() string {
	switch op {
	case Equals:
		return "equals"
	case ExactEquals:
		return "exact"
	case Contains:
		return "contains"
	case Gte:
		return ">="
	case Gt:
		return ">"
	case Lte:
		return "<="
	case Lt:
		return "<"
	case InRange:
		return "range"
	case MatchesRegex:
		return "regex"
	case HasAttribute:
		return "has"
	default:
		return "?"
	}
}

// IsOrdering reports whether op compares by order rather than equality
func (op Operator) IsOrdering() bool {
	switch op {
	case Gte, Gt, Lte, Lt, InRange:
		return true
	}
	return false
}

// Enum is a closed, ordered set of canonical values with optional aliases.
// Lookups are case-insensitive.
type Enum struct {
	Values  []string
	Aliases map[string]string
}

// Lookup returns the ordinal and canonical spelling of raw.
func (e *Enum) Lookup(raw string) (int, string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := e.Aliases[key]; ok {
		key = alias
	}
	for i, v := range e.Values {
		if v == key {
			return i, v, true
		}
	}
	return 0, "", false
}

// Between returns the canonical values whose ordinal lies in [lo, hi].
func (e *Enum) Between(lo, hi int) []string {
	out := []string{}
	for i, v := range e.Values {
		if i >= lo && i <= hi {
			out = append(out, v)
		}
	}
	return out
}

// FieldSpec describes one searchable field
type FieldSpec struct {
	Name string
	Type ValueType
	Ops  []Operator

	// Multi marks set-valued fields: equality is membership and text
	// operators match if any element matches.
	Multi bool

	// Optional fields may be absent on a record. An absent value never
	// satisfies a comparison.
	Optional bool

	// FoldExact makes equality case-insensitive.
	FoldExact bool

	Enum     *Enum
	Sortable bool
}

// Allows reports whether op is accepted by the field.
func (f *FieldSpec) Allows(op Operator) bool {
	for _, o := range f.Ops {
		if o == op {
			return true
		}
	}
	return false
}

// DefaultOp is the operator used when a term carries none.
func (f *FieldSpec) DefaultOp() Operator {
	if f.Allows(HasAttribute) {
		return HasAttribute
	}
	if f.Type == Text {
		return Contains
	}
	return Equals
}

// OperatorFor maps an operator token to the field's operator.
func (f *FieldSpec) OperatorFor(tok string) (Operator, bool) {
	switch tok {
	case "=":
		if f.Allows(ExactEquals) {
			return ExactEquals, true
		}
		return Equals, true
	case ">":
		return Gt, true
	case ">=":
		return Gte, true
	case "<":
		return Lt, true
	case "<=":
		return Lte, true
	}
	return 0, false
}

// ValueKind tags a Value
type ValueKind int

const (
	KindStr ValueKind = iota
	KindStrRange
	KindBool
	KindInt
	KindIntRange
	KindInstant
	KindInstantRange
	KindRegex
)

func (k ValueKind) String() string {
	switch k {
	case KindStr:
		return "str"
	case KindStrRange:
		return "str_range"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindIntRange:
		return "int_range"
	case KindInstant:
		return "instant"
	case KindInstantRange:
		return "instant_range"
	case KindRegex:
		return "regex"
	default:
		return "?"
	}
}

// TimeSpan is a half-open interval [Start, End).
type TimeSpan struct {
	Start time.Time
	End   time.Time
}

func (s TimeSpan) String() string {
	return fmt.Sprintf("[%s, %s)", s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))
}

// Value is a typed query value. Only the members selected by Kind are set.
//
//	KindStr, KindRegex   Str
//	KindStrRange         Str (low), StrHi (high)
//	KindBool             Bool
//	KindInt              Int
//	KindIntRange         Int (low), IntHi (high)
//	KindInstant          Time (the span named by the query text)
//	KindInstantRange     Time (low start to high end)
type Value struct {
	Kind  ValueKind
	Str   string
	StrHi string
	Bool  bool
	Int   int64
	IntHi int64
	Time  TimeSpan
}

// Fits reports whether the value tag is legal for a field of type t.
func (v Value) Fits(t ValueType) bool {
	switch v.Kind {
	case KindStr, KindRegex:
		return t == Text || t == Keyword || t == Identifier
	case KindStrRange:
		return t == Keyword
	case KindBool:
		return t == Boolean
	case KindInt, KindIntRange:
		return t == Integer
	case KindInstant, KindInstantRange:
		return t == Timestamp
	}
	return false
}

func (v Value) String() string {
	switch v.Kind {
	case KindStr:
		return fmt.Sprintf("%q", v.Str)
	case KindRegex:
		return fmt.Sprintf("r%q", v.Str)
	case KindStrRange:
		return fmt.Sprintf("[%s to %s]", v.Str, v.StrHi)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindIntRange:
		return fmt.Sprintf("[%d to %d]", v.Int, v.IntHi)
	case KindInstant, KindInstantRange:
		return v.Time.String()
	}
	return "?"
}
