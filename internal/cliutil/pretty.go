package cliutil

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nonibytes/unitsearch/unitsearch/fields"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

// PrintRecord writes rec as an indented field listing in registry order.
// Absent optional fields are omitted.
func PrintRecord(w io.Writer, reg *fields.Registry, rec storage.Record, now time.Time) {
	fmt.Fprintf(w, "#%d\n", rec.ID)
	for _, spec := range reg.Fields() {
		if spec.Name == fields.IDField {
			continue
		}
		v, ok := formatValue(spec, rec, now)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %-16s %s\n", spec.Name, v)
	}
}

func formatValue(spec *fields.FieldSpec, rec storage.Record, now time.Time) (string, bool) {
	switch spec.Type {
	case fields.Integer:
		n, ok := rec.Ints[spec.Name]
		return humanize.Comma(n), ok
	case fields.Boolean:
		b, ok := rec.Bools[spec.Name]
		return fmt.Sprint(b), ok
	case fields.Timestamp:
		t, ok := rec.Times[spec.Name]
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%s (%s)", t.UTC().Format(time.RFC3339), humanize.RelTime(t, now, "ago", "from now")), true
	}
	if spec.Multi {
		vals, ok := rec.Sets[spec.Name]
		if !ok || len(vals) == 0 {
			return "", false
		}
		return strings.Join(vals, ", "), true
	}
	s, ok := rec.Strings[spec.Name]
	if !ok || s == "" {
		return "", false
	}
	return fmt.Sprintf("%q", s), true
}

// Count formats n with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}
