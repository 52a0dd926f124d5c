package fields

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Registry is an immutable table of searchable fields. It is safe for
// concurrent use once built.
type Registry struct {
	name     string
	byName   map[string]*FieldSpec
	ordered  []*FieldSpec
	defaults []*FieldSpec
}

// NewRegistry builds a registry. defaults names the Text fields that
// free-text terms are matched against.
func NewRegistry(name string, defaults []string, specs ...FieldSpec) (*Registry, error) {
	r := &Registry{name: name, byName: make(map[string]*FieldSpec, len(specs))}
	for i := range specs {
		spec := specs[i]
		if spec.Name == "" {
			return nil, fmt.Errorf("registry %s: field %d has no name", name, i)
		}
		if _, dup := r.byName[spec.Name]; dup {
			return nil, fmt.Errorf("registry %s: duplicate field %s", name, spec.Name)
		}
		if len(spec.Ops) == 0 {
			return nil, fmt.Errorf("registry %s: field %s accepts no operators", name, spec.Name)
		}
		if spec.Allows(HasAttribute) && spec.Enum == nil {
			return nil, fmt.Errorf("registry %s: attribute field %s needs an enumeration", name, spec.Name)
		}
		r.byName[spec.Name] = &spec
		r.ordered = append(r.ordered, &spec)
	}
	if len(defaults) == 0 {
		return nil, fmt.Errorf("registry %s: no default free-text fields", name)
	}
	for _, d := range defaults {
		spec, ok := r.byName[d]
		if !ok {
			return nil, fmt.Errorf("registry %s: unknown default field %s", name, d)
		}
		if spec.Type != Text || spec.Multi {
			return nil, fmt.Errorf("registry %s: default field %s must be single-valued text", name, d)
		}
		r.defaults = append(r.defaults, spec)
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on error. It is meant for
// package-level tables.
func MustRegistry(name string, defaults []string, specs ...FieldSpec) *Registry {
	r, err := NewRegistry(name, defaults, specs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Name returns the record kind the registry describes.
func (r *Registry) Name() string { return r.name }

// Resolve looks up a field by name.
func (r *Registry) Resolve(name string) (*FieldSpec, bool) {
	spec, ok := r.byName[strings.ToLower(name)]
	return spec, ok
}

// Fields returns every field in declaration order.
func (r *Registry) Fields() []*FieldSpec {
	return r.ordered
}

// DefaultFields returns the fields searched by free-text terms.
func (r *Registry) DefaultFields() []*FieldSpec {
	return r.defaults
}

// Coerce turns raw query text into a typed value for spec under op.
// Timestamps are resolved against now.
func (r *Registry) Coerce(spec *FieldSpec, raw string, op Operator, now time.Time) (Value, error) {
	if op == MatchesRegex {
		return Value{Kind: KindRegex, Str: raw}, nil
	}

	switch spec.Type {
	case Text, Identifier:
		return Value{Kind: KindStr, Str: raw}, nil

	case Keyword:
		if spec.Enum == nil {
			return Value{Kind: KindStr, Str: raw}, nil
		}
		_, canonical, ok := spec.Enum.Lookup(raw)
		if !ok {
			return Value{}, &CoercionError{Kind: UnknownEnumValue, Field: spec.Name, Value: raw}
		}
		return Value{Kind: KindStr, Str: canonical}, nil

	case Boolean:
		b, ok := parseBool(raw)
		if !ok {
			return Value{}, &CoercionError{Kind: UnparsableBool, Field: spec.Name, Value: raw}
		}
		return Value{Kind: KindBool, Bool: b}, nil

	case Integer:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Value{}, &CoercionError{Kind: UnparsableNumber, Field: spec.Name, Value: raw}
		}
		return Value{Kind: KindInt, Int: n}, nil

	case Timestamp:
		span, ok := ParseInstant(raw, now)
		if !ok {
			return Value{}, &CoercionError{Kind: UnparsableDate, Field: spec.Name, Value: raw}
		}
		return Value{Kind: KindInstant, Time: span}, nil
	}

	return Value{}, fmt.Errorf("field %s has unsupported type %s", spec.Name, spec.Type)
}

// CoerceRange coerces both bounds of a range literal. A range whose low
// bound exceeds its high bound is returned as is; it matches nothing.
func (r *Registry) CoerceRange(spec *FieldSpec, lo, hi string, now time.Time) (Value, error) {
	loV, err := r.Coerce(spec, lo, InRange, now)
	if err != nil {
		return Value{}, err
	}
	hiV, err := r.Coerce(spec, hi, InRange, now)
	if err != nil {
		return Value{}, err
	}

	switch loV.Kind {
	case KindInt:
		return Value{Kind: KindIntRange, Int: loV.Int, IntHi: hiV.Int}, nil
	case KindInstant:
		return Value{Kind: KindInstantRange, Time: TimeSpan{Start: loV.Time.Start, End: hiV.Time.End}}, nil
	case KindStr:
		if spec.Enum != nil {
			return Value{Kind: KindStrRange, Str: loV.Str, StrHi: hiV.Str}, nil
		}
	}
	return Value{}, fmt.Errorf("field %s has no range form", spec.Name)
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "on", "1":
		return true, true
	case "false", "no", "off", "0":
		return false, true
	}
	return false, false
}

// SortField is one key of a caller-supplied ordering
type SortField struct {
	Field *FieldSpec
	Desc  bool
}

// ParseOrdering parses a comma separated list of sortable field names,
// each optionally prefixed with '-' for descending order.
func (r *Registry) ParseOrdering(s string) ([]SortField, error) {
	var out []SortField
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desc := false
		if strings.HasPrefix(part, "-") {
			desc = true
			part = part[1:]
		}
		spec, ok := r.Resolve(part)
		if !ok {
			return nil, fmt.Errorf("unknown sort field %s", part)
		}
		if !spec.Sortable {
			return nil, fmt.Errorf("field %s is not sortable", spec.Name)
		}
		out = append(out, SortField{Field: spec, Desc: desc})
	}
	return out, nil
}
