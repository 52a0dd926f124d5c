package ops

import (
	"context"
	"fmt"

	"github.com/nonibytes/unitsearch/unitsearch/fields"
	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

// DefaultFacetLimit is the number of values returned when none is asked for
const DefaultFacetLimit = 20

// FieldOverview describes one searchable field
type FieldOverview struct {
	Field     string   `json:"field"`
	Type      string   `json:"type"`
	Multi     bool     `json:"multi,omitempty"`
	Optional  bool     `json:"optional,omitempty"`
	Sortable  bool     `json:"sortable,omitempty"`
	Default   bool     `json:"default,omitempty"`
	Operators []string `json:"operators"`
	Values    []string `json:"values,omitempty"`
}

// DiscoverFields lists the fields of a registry in declaration order.
func DiscoverFields(reg *fields.Registry) []FieldOverview {
	defaults := make(map[string]bool)
	for _, spec := range reg.DefaultFields() {
		defaults[spec.Name] = true
	}

	out := make([]FieldOverview, 0, len(reg.Fields()))
	for _, spec := range reg.Fields() {
		ops := make([]string, len(spec.Ops))
		for i, op := range spec.Ops {
			ops[i] = op.String()
		}
		fo := FieldOverview{
			Field:     spec.Name,
			Type:      spec.Type.String(),
			Multi:     spec.Multi,
			Optional:  spec.Optional,
			Sortable:  spec.Sortable,
			Default:   defaults[spec.Name],
			Operators: ops,
		}
		if spec.Enum != nil {
			fo.Values = append([]string(nil), spec.Enum.Values...)
		}
		out = append(out, fo)
	}
	return out
}

// Facetable reports whether values of a field can be counted.
func Facetable(spec *fields.FieldSpec) bool {
	return spec.Type == fields.Keyword || spec.Type == fields.Identifier
}

// DiscoverValues counts the records matching compiled per value of a
// keyword or identifier field, most frequent first.
func DiscoverValues(ctx context.Context, store storage.RecordStore, compiled planner.Compiled, spec *fields.FieldSpec, limit int) ([]storage.FacetCount, error) {
	if !Facetable(spec) {
		return nil, fmt.Errorf("facets only available for keyword/identifier fields, got %s", spec.Type)
	}
	faceter, ok := store.(storage.Faceter)
	if !ok {
		return nil, fmt.Errorf("%s store does not support facets", store.Backend())
	}
	if limit <= 0 {
		limit = DefaultFacetLimit
	}

	counts, err := faceter.Facet(ctx, compiled.Predicate, planner.AccessorFor(spec), limit)
	if err != nil {
		return nil, &ExecutionError{Store: store.Backend(), Cause: err}
	}
	if counts == nil {
		counts = []storage.FacetCount{}
	}
	return counts, nil
}
