package fields

var (
	textOps      = []Operator{Contains, ExactEquals, MatchesRegex}
	identOps     = []Operator{Equals, MatchesRegex}
	setOps       = []Operator{Equals, Contains, MatchesRegex}
	boolOps      = []Operator{Equals}
	orderedOps   = []Operator{Equals, Gt, Gte, Lt, Lte, InRange}
	attributeOps = []Operator{HasAttribute}
)

// IDField is the record identifier, present in every registry.
const IDField = "id"

// StateEnum orders translation states from least to most finished.
var StateEnum = &Enum{
	Values: []string{"empty", "needs-editing", "translated", "approved", "read-only"},
	Aliases: map[string]string{
		"untranslated": "empty",
		"fuzzy":        "needs-editing",
		"readonly":     "read-only",
	},
}

// UnitAttributes is the closed set of has: attributes of a unit.
var UnitAttributes = &Enum{
	Values: []string{
		"suggestion", "comment", "check", "dismissed-check", "label",
		"context", "note", "explanation", "location",
		"screenshot", "plural", "glossary", "variant",
	},
	Aliases: map[string]string{
		"dismissed_check": "dismissed-check",
		"failing-check":   "check",
	},
}

// Units describes translatable strings.
var Units = MustRegistry("units", []string{"source", "target", "context"},
	FieldSpec{Name: IDField, Type: Integer, Ops: orderedOps, Sortable: true},
	FieldSpec{Name: "source", Type: Text, Ops: textOps, Sortable: true},
	FieldSpec{Name: "target", Type: Text, Ops: textOps, Sortable: true},
	FieldSpec{Name: "context", Type: Text, Ops: textOps, Sortable: true},
	FieldSpec{Name: "note", Type: Text, Ops: textOps},
	FieldSpec{Name: "location", Type: Text, Ops: textOps},
	FieldSpec{Name: "explanation", Type: Text, Ops: textOps},
	FieldSpec{Name: "suggestion", Type: Text, Ops: []Operator{Contains, MatchesRegex}, Multi: true},
	FieldSpec{Name: "comment", Type: Text, Ops: []Operator{Contains, MatchesRegex}, Multi: true},
	FieldSpec{Name: "state", Type: Keyword, Ops: orderedOps, Enum: StateEnum, Sortable: true},
	FieldSpec{Name: "pending", Type: Boolean, Ops: boolOps},
	FieldSpec{Name: "changed", Type: Timestamp, Ops: orderedOps, Optional: true, Sortable: true},
	FieldSpec{Name: "source_changed", Type: Timestamp, Ops: orderedOps, Optional: true, Sortable: true},
	FieldSpec{Name: "added", Type: Timestamp, Ops: orderedOps, Sortable: true},
	FieldSpec{Name: "position", Type: Integer, Ops: orderedOps, Sortable: true},
	FieldSpec{Name: "priority", Type: Integer, Ops: orderedOps, Sortable: true},
	FieldSpec{Name: "language", Type: Identifier, Ops: identOps, FoldExact: true, Sortable: true},
	FieldSpec{Name: "component", Type: Identifier, Ops: identOps, FoldExact: true, Sortable: true},
	FieldSpec{Name: "project", Type: Identifier, Ops: identOps, FoldExact: true, Sortable: true},
	FieldSpec{Name: "changed_by", Type: Identifier, Ops: identOps, Optional: true, Sortable: true},
	FieldSpec{Name: "label", Type: Keyword, Ops: setOps, Multi: true, FoldExact: true},
	FieldSpec{Name: "check", Type: Keyword, Ops: setOps, Multi: true},
	FieldSpec{Name: "dismissed_check", Type: Keyword, Ops: setOps, Multi: true},
	FieldSpec{Name: "has", Type: Keyword, Ops: attributeOps, Multi: true, Enum: UnitAttributes},
)

// Users describes user accounts.
var Users = MustRegistry("users", []string{"username", "full_name", "email"},
	FieldSpec{Name: IDField, Type: Integer, Ops: orderedOps, Sortable: true},
	FieldSpec{Name: "username", Type: Text, Ops: textOps, FoldExact: true, Sortable: true},
	FieldSpec{Name: "full_name", Type: Text, Ops: textOps, Sortable: true},
	FieldSpec{Name: "email", Type: Text, Ops: textOps, FoldExact: true},
	FieldSpec{Name: "joined", Type: Timestamp, Ops: orderedOps, Sortable: true},
	FieldSpec{Name: "last_login", Type: Timestamp, Ops: orderedOps, Optional: true, Sortable: true},
	FieldSpec{Name: "is_active", Type: Boolean, Ops: boolOps, Sortable: true},
	FieldSpec{Name: "is_bot", Type: Boolean, Ops: boolOps, Sortable: true},
	FieldSpec{Name: "language", Type: Identifier, Ops: identOps, Multi: true, FoldExact: true},
	FieldSpec{Name: "translates", Type: Identifier, Ops: identOps, Multi: true, FoldExact: true},
	FieldSpec{Name: "contributes", Type: Identifier, Ops: identOps, Multi: true, FoldExact: true},
)

// ByName returns a built-in registry by record kind.
func ByName(kind string) (*Registry, bool) {
	switch kind {
	case "units", "unit":
		return Units, true
	case "users", "user":
		return Users, true
	}
	return nil, false
}
