package query

import (
	"fmt"
	"strings"

	"github.com/nonibytes/unitsearch/unitsearch/fields"
)

// Node is a query AST node
type Node interface {
	isNode()
}

// And matches when both sides match
type And struct {
	Left  Node
	Right Node
}

func (And) isNode() {}

// Or matches when either side matches
type Or struct {
	Left  Node
	Right Node
}

func (Or) isNode() {}

// Not inverts its child
type Not struct {
	Inner Node
}

func (Not) isNode() {}

// FreeText matches when every word occurs, case-insensitively, in at
// least one of the registry's default fields. Different words may match
// different fields.
type FreeText struct {
	Words []string
}

func (FreeText) isNode() {}

// FieldMatch is a typed comparison against one field
type FieldMatch struct {
	Field *fields.FieldSpec
	Op    fields.Operator
	Value fields.Value
}

func (FieldMatch) isNode() {}

// Exists matches records carrying the named attribute (has:suggestion).
type Exists struct {
	Field     *fields.FieldSpec
	Attribute string
}

func (Exists) isNode() {}

// MatchAll matches every record. The parser never produces it; callers
// use it for an empty query.
type MatchAll struct{}

func (MatchAll) isNode() {}

// Format renders n as a fully parenthesized expression. Two trees
// format identically iff they are structurally equal.
func Format(n Node) string {
	var sb strings.Builder
	format(&sb, n)
	return sb.String()
}

func format(sb *strings.Builder, n Node) {
	switch e := n.(type) {
	case And:
		sb.WriteString("(and ")
		format(sb, e.Left)
		sb.WriteByte(' ')
		format(sb, e.Right)
		sb.WriteByte(')')
	case Or:
		sb.WriteString("(or ")
		format(sb, e.Left)
		sb.WriteByte(' ')
		format(sb, e.Right)
		sb.WriteByte(')')
	case Not:
		sb.WriteString("(not ")
		format(sb, e.Inner)
		sb.WriteByte(')')
	case FreeText:
		fmt.Fprintf(sb, "(text %q)", e.Words)
	case FieldMatch:
		fmt.Fprintf(sb, "(%s %s %s)", e.Field.Name, e.Op, e.Value)
	case Exists:
		fmt.Fprintf(sb, "(%s %s)", e.Field.Name, e.Attribute)
	case MatchAll:
		sb.WriteString("(all)")
	default:
		fmt.Fprintf(sb, "(? %T)", n)
	}
}
