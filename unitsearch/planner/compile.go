package planner

import (
	"github.com/nonibytes/unitsearch/unitsearch/fields"
	"github.com/nonibytes/unitsearch/unitsearch/query"
)

// Compiled is a predicate plus the order results are returned in
type Compiled struct {
	Predicate Predicate
	Order     []SortKey
}

// Compile lowers a parsed query into a store predicate. It cannot fail:
// the parser has already checked every type. An empty sort selects the
// default order, and the record id is always the final tiebreaker.
func Compile(reg *fields.Registry, node query.Node, sort []fields.SortField) Compiled {
	c := &compiler{reg: reg}
	return Compiled{
		Predicate: c.compile(node),
		Order:     c.order(sort),
	}
}

type compiler struct {
	reg *fields.Registry
}

// AccessorFor maps a field to its storage location.
func AccessorFor(spec *fields.FieldSpec) Accessor {
	a := Accessor{Field: spec.Name, Optional: spec.Optional}
	switch {
	case spec.Name == fields.IDField:
		a.Column = ColID
	case spec.Multi:
		a.Column = ColSet
	case spec.Type == fields.Integer:
		a.Column = ColInt
	case spec.Type == fields.Boolean:
		a.Column = ColBool
	case spec.Type == fields.Timestamp:
		a.Column = ColTime
	default:
		a.Column = ColText
	}
	return a
}

func (c *compiler) compile(node query.Node) Predicate {
	switch e := node.(type) {
	case query.And:
		return And{Left: c.compile(e.Left), Right: c.compile(e.Right)}
	case query.Or:
		return Or{Left: c.compile(e.Left), Right: c.compile(e.Right)}
	case query.Not:
		return negate(c.compile(e.Inner))
	case query.FreeText:
		var accessors []Accessor
		for _, spec := range c.reg.DefaultFields() {
			accessors = append(accessors, AccessorFor(spec))
		}
		return AllWords{Fields: accessors, Words: e.Words}
	case query.Exists:
		return Has{Field: AccessorFor(e.Field), Values: []string{e.Attribute}}
	case query.FieldMatch:
		return c.compileMatch(e)
	case query.MatchAll:
		return MatchAll{}
	}
	panic("planner: unknown node type")
}

func (c *compiler) compileMatch(m query.FieldMatch) Predicate {
	spec := m.Field
	field := AccessorFor(spec)

	if m.Op == fields.MatchesRegex {
		return TextMatch{Field: field, Mode: TextRegex, Value: m.Value.Str}
	}

	switch spec.Type {
	case fields.Text, fields.Identifier, fields.Keyword:
		if spec.Enum != nil && !spec.Multi {
			return In{Field: field, Values: enumSet(spec.Enum, m.Op, m.Value)}
		}
		switch {
		case m.Op == fields.Contains:
			return TextMatch{Field: field, Mode: TextContains, Value: m.Value.Str}
		case spec.Multi:
			return Has{Field: field, Values: []string{m.Value.Str}, Fold: spec.FoldExact}
		default:
			return In{Field: field, Values: []string{m.Value.Str}, Fold: spec.FoldExact}
		}

	case fields.Boolean:
		return BoolEq{Field: field, Value: m.Value.Bool}

	case fields.Integer:
		if m.Value.Kind == fields.KindIntRange {
			return IntRange{Field: field, Lo: m.Value.Int, Hi: m.Value.IntHi}
		}
		return IntCmp{Field: field, Op: cmpOp(m.Op), Value: m.Value.Int}

	case fields.Timestamp:
		return lowerSpan(field, m.Op, m.Value.Time)
	}
	panic("planner: unknown field type")
}

// lowerSpan turns a comparison against the span a date literal names
// into bounds on the instant. Equality and ranges cover the whole span.
func lowerSpan(field Accessor, op fields.Operator, span fields.TimeSpan) Predicate {
	switch op {
	case fields.Gt:
		return TimeCmp{Field: field, Op: CmpGte, Value: span.End}
	case fields.Gte:
		return TimeCmp{Field: field, Op: CmpGte, Value: span.Start}
	case fields.Lt:
		return TimeCmp{Field: field, Op: CmpLt, Value: span.Start}
	case fields.Lte:
		return TimeCmp{Field: field, Op: CmpLt, Value: span.End}
	}
	return TimeRange{Field: field, Start: span.Start, End: span.End}
}

// enumSet expands an ordered enum comparison into the matching values.
func enumSet(enum *fields.Enum, op fields.Operator, v fields.Value) []string {
	ord, _, _ := enum.Lookup(v.Str)
	last := len(enum.Values) - 1
	switch op {
	case fields.Gt:
		return enum.Between(ord+1, last)
	case fields.Gte:
		return enum.Between(ord, last)
	case fields.Lt:
		return enum.Between(0, ord-1)
	case fields.Lte:
		return enum.Between(0, ord)
	case fields.InRange:
		hi, _, _ := enum.Lookup(v.StrHi)
		return enum.Between(ord, hi)
	}
	return []string{v.Str}
}

func cmpOp(op fields.Operator) CmpOp {
	switch op {
	case fields.Gt:
		return CmpGt
	case fields.Gte:
		return CmpGte
	case fields.Lt:
		return CmpLt
	case fields.Lte:
		return CmpLte
	}
	return CmpEq
}

// negate pushes a negation into the predicate when a closed form exists.
func negate(p Predicate) Predicate {
	switch q := p.(type) {
	case Not:
		return q.Inner
	case IntCmp:
		if q.Field.closed() {
			q.Op = q.Op.Negate()
			return q
		}
	case TimeCmp:
		if q.Field.closed() {
			q.Op = q.Op.Negate()
			return q
		}
	case BoolEq:
		if q.Field.closed() {
			q.Value = !q.Value
			return q
		}
	case In:
		if q.Field.closed() {
			q.Negate = !q.Negate
			return q
		}
	}
	return Not{Inner: p}
}

func (c *compiler) order(sort []fields.SortField) []SortKey {
	var keys []SortKey
	hasID := false
	for _, s := range sort {
		a := AccessorFor(s.Field)
		if a.Column == ColID {
			hasID = true
		}
		key := SortKey{Field: a, Desc: s.Desc}
		if s.Field.Enum != nil && a.Column == ColText {
			key.Rank = s.Field.Enum.Values
		}
		keys = append(keys, key)
		if hasID {
			break
		}
	}
	if !hasID {
		keys = append(keys, SortKey{Field: Accessor{Field: fields.IDField, Column: ColID}})
	}
	return keys
}
