package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nonibytes/unitsearch/unitsearch/fields"
	"github.com/nonibytes/unitsearch/unitsearch/metrics"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

// DecodeError reports a document field that does not fit the registry
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ParseDocument decodes one JSON object into a record.
func ParseDocument(reg *fields.Registry, docJSON []byte) (storage.Record, error) {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(docJSON))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return storage.Record{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if doc == nil {
		return storage.Record{}, fmt.Errorf("document must be a JSON object")
	}
	return DecodeRecord(reg, doc)
}

// DecodeRecord builds a record from a JSON-like document. Non-optional
// fields missing from doc get their zero value; optional ones stay
// absent. Attribute fields are derived from the populated fields plus
// any values given explicitly.
func DecodeRecord(reg *fields.Registry, doc map[string]any) (storage.Record, error) {
	rec := storage.Record{
		Strings: make(map[string]string),
		Sets:    make(map[string][]string),
		Ints:    make(map[string]int64),
		Bools:   make(map[string]bool),
		Times:   make(map[string]time.Time),
	}

	for key := range doc {
		if _, ok := reg.Resolve(key); !ok {
			return storage.Record{}, &DecodeError{Field: key, Err: fmt.Errorf("unknown field")}
		}
	}

	id, err := DocumentID(doc)
	if err != nil {
		return storage.Record{}, err
	}
	rec.ID = id

	var attrSpecs []*fields.FieldSpec
	for _, spec := range reg.Fields() {
		if spec.Name == fields.IDField {
			continue
		}
		if spec.Allows(fields.HasAttribute) {
			attrSpecs = append(attrSpecs, spec)
		}
		val, present := doc[spec.Name]
		if val == nil {
			present = false
		}
		if err := decodeField(&rec, spec, val, present); err != nil {
			return storage.Record{}, &DecodeError{Field: spec.Name, Err: err}
		}
	}

	for _, spec := range attrSpecs {
		rec.Sets[spec.Name] = deriveAttributes(reg, spec, &rec)
	}
	return rec, nil
}

// DocumentID reads the id of a record document. Numbers and numeric
// strings are accepted.
func DocumentID(doc map[string]any) (int64, error) {
	rawID, ok := doc[fields.IDField]
	if !ok || rawID == nil {
		return 0, &DecodeError{Field: fields.IDField, Err: fmt.Errorf("required")}
	}
	id, err := extractInt(rawID)
	if err != nil {
		return 0, &DecodeError{Field: fields.IDField, Err: err}
	}
	return id, nil
}

func decodeField(rec *storage.Record, spec *fields.FieldSpec, val any, present bool) error {
	if spec.Multi {
		if !present {
			if !spec.Optional {
				rec.Sets[spec.Name] = []string{}
			}
			return nil
		}
		vs, err := extractStrings(val)
		if err != nil {
			return err
		}
		for i, v := range vs {
			if vs[i], err = canonical(spec, v); err != nil {
				return err
			}
		}
		rec.Sets[spec.Name] = vs
		return nil
	}

	if !present {
		if spec.Optional {
			return nil
		}
		switch spec.Type {
		case fields.Integer:
			rec.Ints[spec.Name] = 0
		case fields.Boolean:
			rec.Bools[spec.Name] = false
		case fields.Timestamp:
			rec.Times[spec.Name] = time.UnixMilli(0).UTC()
		default:
			v := ""
			if spec.Enum != nil && len(spec.Enum.Values) > 0 {
				v = spec.Enum.Values[0]
			}
			rec.Strings[spec.Name] = v
		}
		return nil
	}

	switch spec.Type {
	case fields.Integer:
		n, err := extractInt(val)
		if err != nil {
			return err
		}
		rec.Ints[spec.Name] = n
	case fields.Boolean:
		b, err := extractBool(val)
		if err != nil {
			return err
		}
		rec.Bools[spec.Name] = b
	case fields.Timestamp:
		t, err := extractTime(val)
		if err != nil {
			return err
		}
		rec.Times[spec.Name] = t
	default:
		s, err := extractString(val)
		if err != nil {
			return err
		}
		if s, err = canonical(spec, s); err != nil {
			return err
		}
		rec.Strings[spec.Name] = s
	}
	return nil
}

// canonical maps enum aliases to their canonical spelling.
func canonical(spec *fields.FieldSpec, v string) (string, error) {
	if spec.Enum == nil {
		return v, nil
	}
	_, c, ok := spec.Enum.Lookup(v)
	if !ok {
		return "", fmt.Errorf("unknown value %q", v)
	}
	return c, nil
}

// deriveAttributes returns the explicit attributes plus one per enum
// value naming a populated field ("dismissed-check" names
// dismissed_check).
func deriveAttributes(reg *fields.Registry, spec *fields.FieldSpec, rec *storage.Record) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range rec.Sets[spec.Name] {
		add(v)
	}
	for _, attr := range spec.Enum.Values {
		other, ok := reg.Resolve(strings.ReplaceAll(attr, "-", "_"))
		if !ok || other == spec {
			continue
		}
		if populated(rec, other) {
			add(attr)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func populated(rec *storage.Record, spec *fields.FieldSpec) bool {
	if spec.Multi {
		return len(rec.Sets[spec.Name]) > 0
	}
	switch spec.Type {
	case fields.Integer:
		_, ok := rec.Ints[spec.Name]
		return ok
	case fields.Boolean:
		return rec.Bools[spec.Name]
	case fields.Timestamp:
		_, ok := rec.Times[spec.Name]
		return ok
	}
	return rec.Strings[spec.Name] != ""
}

// PutRecords writes records to a store in batches.
func PutRecords(ctx context.Context, store storage.RecordStore, records []storage.Record, batchSize int) error {
	loader, ok := store.(storage.Loader)
	if !ok {
		return fmt.Errorf("%s store does not accept writes", store.Backend())
	}
	if batchSize <= 0 {
		batchSize = len(records)
	}
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		if err := loader.Put(ctx, records[start:end]...); err != nil {
			return &ExecutionError{Store: store.Backend(), Cause: err}
		}
		metrics.ObserveWrite(string(store.Backend()), "put", end-start)
	}
	return nil
}

// DeleteRecords removes records by id. Unknown ids are ignored.
func DeleteRecords(ctx context.Context, store storage.RecordStore, ids []int64) error {
	loader, ok := store.(storage.Loader)
	if !ok {
		return fmt.Errorf("%s store does not accept writes", store.Backend())
	}
	if err := loader.Delete(ctx, ids...); err != nil {
		return &ExecutionError{Store: store.Backend(), Cause: err}
	}
	metrics.ObserveWrite(string(store.Backend()), "delete", len(ids))
	return nil
}

func extractString(val any) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("invalid string value type: %T", val)
	}
}

func extractStrings(val any) ([]string, error) {
	switch v := val.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, err := extractString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return append([]string(nil), v...), nil
	default:
		s, err := extractString(val)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
}

func extractInt(val any) (int64, error) {
	switch v := val.(type) {
	case json.Number:
		return v.Int64()
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("not an integer: %v", v)
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse '%s' as integer", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid integer value type: %T", val)
	}
}

func extractBool(val any) (bool, error) {
	switch v := val.(type) {
	case bool:
		return v, nil
	case string:
		switch v {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return false, fmt.Errorf("invalid bool string: %s", v)
		}
	default:
		return false, fmt.Errorf("invalid bool value type: %T", val)
	}
}

// extractTime accepts RFC 3339, a bare date (UTC midnight) or epoch
// milliseconds. Values are truncated to milliseconds, the precision
// stores keep.
func extractTime(val any) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v.Truncate(time.Millisecond), nil
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t.Truncate(time.Millisecond), nil
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("invalid date format: %s", v)
	default:
		ms, err := extractInt(val)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date value type: %T", val)
		}
		return time.UnixMilli(ms).UTC(), nil
	}
}
