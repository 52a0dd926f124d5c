package ops

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/unitsearch/unitsearch/fields"
	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/query"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
	"github.com/nonibytes/unitsearch/unitsearch/storage/memory"
)

func TestParseDocument(t *testing.T) {
	rec, err := ParseDocument(fields.Units, []byte(`{
		"id": 7,
		"source": "Hello",
		"state": "fuzzy",
		"pending": true,
		"changed": "2024-03-01T10:00:00.123456Z",
		"position": 3,
		"label": ["ui", "docs"],
		"comment": "check this",
		"has": ["screenshot"]
	}`))
	require.NoError(t, err)

	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, "Hello", rec.Strings["source"])
	assert.Equal(t, "needs-editing", rec.Strings["state"])
	assert.True(t, rec.Bools["pending"])
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 123000000, time.UTC), rec.Times["changed"])
	assert.Equal(t, int64(3), rec.Ints["position"])
	assert.Equal(t, []string{"ui", "docs"}, rec.Sets["label"])
	assert.Equal(t, []string{"check this"}, rec.Sets["comment"])
	assert.ElementsMatch(t, []string{"screenshot", "comment", "label"}, rec.Sets["has"])
}

func TestDecodeRecordDefaults(t *testing.T) {
	rec, err := DecodeRecord(fields.Units, map[string]any{"id": 1})
	require.NoError(t, err)

	assert.Equal(t, "", rec.Strings["source"])
	assert.Equal(t, "empty", rec.Strings["state"])
	assert.Contains(t, rec.Ints, "priority")
	assert.Contains(t, rec.Bools, "pending")
	assert.Contains(t, rec.Times, "added")
	assert.NotContains(t, rec.Times, "changed")
	assert.NotContains(t, rec.Strings, "changed_by")
	assert.Empty(t, rec.Sets["has"])
}

func TestDecodeRecordErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   map[string]any
		field string
	}{
		{"missing id", map[string]any{"source": "x"}, "id"},
		{"unknown field", map[string]any{"id": 1, "bogus": "x"}, "bogus"},
		{"bad state", map[string]any{"id": 1, "state": "done"}, "state"},
		{"bad integer", map[string]any{"id": 1, "position": "ten"}, "position"},
		{"bad date", map[string]any{"id": 1, "changed": "yesterday-ish"}, "changed"},
		{"bad attribute", map[string]any{"id": 1, "has": []any{"sparkles"}}, "has"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRecord(fields.Units, tt.doc)
			var de *DecodeError
			require.True(t, errors.As(err, &de), "expected DecodeError, got %v", err)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func loadUnits(t *testing.T, docs ...map[string]any) *memory.Store {
	t.Helper()
	store := memory.New()
	recs := make([]storage.Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := DecodeRecord(fields.Units, doc)
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	require.NoError(t, PutRecords(context.Background(), store, recs, 2))
	return store
}

func compileUnits(t *testing.T, input string) planner.Compiled {
	t.Helper()
	node, err := query.ParseString(input, fields.Units, query.Options{Now: time.Now()})
	require.NoError(t, err)
	return planner.Compile(fields.Units, node, nil)
}

func TestPutRecordsThenExists(t *testing.T) {
	store := loadUnits(t,
		map[string]any{"id": 1, "comment": []any{"hm"}},
		map[string]any{"id": 2, "note": "read me"},
		map[string]any{"id": 3},
	)
	assert.Equal(t, 3, store.Len())

	res, err := Execute(context.Background(), store, compileUnits(t, "has:comment OR has:note"), PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, res.IDs)

	res, err = Execute(context.Background(), store, compileUnits(t, "NOT has:comment"), PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, res.IDs)
}

func TestDeleteRecords(t *testing.T) {
	store := loadUnits(t, map[string]any{"id": 1}, map[string]any{"id": 2})
	require.NoError(t, DeleteRecords(context.Background(), store, []int64{1}))
	assert.Equal(t, 1, store.Len())
}
