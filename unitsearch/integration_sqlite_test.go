package unitsearch_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/unitsearch/unitsearch"
	"github.com/nonibytes/unitsearch/unitsearch/fields"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

var testNow = time.Date(2024, time.March, 15, 13, 45, 0, 0, time.UTC)

var unitDocs = []map[string]any{
	{"id": 1, "source": "hello", "target": "hallo", "state": "translated", "position": 10,
		"changed": "2019-03-01T00:00:00Z", "label": []string{"UI"}, "component": "Core"},
	{"id": 2, "source": "bar", "target": "", "state": "needs-editing", "position": 100,
		"changed": "2019-04-01T23:59:59.999Z", "comment": []string{"typo?"}, "component": "core"},
	{"id": 3, "source": "hello world", "target": "", "state": "needs-editing", "position": 9,
		"changed": "2019-02-28T12:00:00Z", "pending": true, "component": "docs"},
	{"id": 4, "source": "this is a string, quoted", "state": "approved", "position": 101,
		"changed": "2019-04-02T00:00:00Z", "component": "docs"},
	{"id": 5, "source": "item 3", "context": "menu", "state": "read-only", "position": 50,
		"note": "keep short", "component": "core"},
}

func newEngine(t *testing.T, cfg unitsearch.StoreConfig) *unitsearch.Engine {
	t.Helper()
	ctx := context.Background()

	store, err := unitsearch.OpenStore(ctx, cfg, fields.Units.Name())
	require.NoError(t, err)

	opts := unitsearch.DefaultOptions()
	opts.Now = func() time.Time { return testNow }
	e := unitsearch.NewEngine(fields.Units, store, opts)
	t.Cleanup(func() { _ = e.Close() })

	b := unitsearch.NewBatch()
	for _, doc := range unitDocs {
		raw, err := json.Marshal(doc)
		require.NoError(t, err)
		require.NoError(t, b.PutJSON(raw))
	}
	n, err := e.Apply(ctx, b)
	require.NoError(t, err)
	require.Equal(t, len(unitDocs), n)
	return e
}

func engines(t *testing.T) map[string]*unitsearch.Engine {
	return map[string]*unitsearch.Engine{
		"memory": newEngine(t, unitsearch.StoreConfig{Backend: storage.BackendMemory}),
		"sqlite": newEngine(t, unitsearch.StoreConfig{
			Backend:    storage.BackendSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "units.db"),
		}),
	}
}

func TestStoresAgree(t *testing.T) {
	tests := []struct {
		query string
		sort  string
		want  []int64
	}{
		{"state:translated AND (source:hello OR source:bar)", "", []int64{1}},
		{"changed:[2019-03-01 to 2019-04-01]", "", []int64{1, 2}},
		{`"this is a quoted string"`, "", []int64{4}},
		{"position:[10 to 100]", "", []int64{1, 2, 5}},
		{"source:=hello", "", []int64{1}},
		{"source:hello", "", []int64{1, 3}},
		{`source:r"[2-5]"`, "", []int64{5}},
		{"NOT state:translated", "", []int64{2, 3, 4, 5}},
		{"state:>=translated", "", []int64{1, 4, 5}},
		{"NOT changed:<2019-03-01", "", []int64{1, 2, 4, 5}},
		{"pending:true", "", []int64{3}},
		{"label:ui", "", []int64{1}},
		{"component:CORE", "", []int64{1, 2, 5}},
		{"has:comment OR has:note", "", []int64{2, 5}},
		{"has:context", "", []int64{5}},
		{"hello OR menu", "", []int64{1, 3, 5}},
		{"id:>3", "", []int64{4, 5}},
		{"", "-changed", []int64{4, 2, 1, 3, 5}},
		{"component:core", "-position", []int64{2, 5, 1}},
		{"NOT (state:approved OR state:read-only)", "source", []int64{2, 1, 3}},
		{"", "state", []int64{2, 3, 1, 4, 5}},
		{"", "-state", []int64{5, 4, 1, 2, 3}},
		{"NOT state:read-only", "-state,-position", []int64{4, 1, 2, 3}},
	}
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			for _, tt := range tests {
				res, err := e.Search(context.Background(), unitsearch.SearchRequest{Query: tt.query, Sort: tt.sort, Limit: 50})
				require.NoError(t, err, tt.query)
				assert.Equal(t, tt.want, res.IDs, "%q sort=%q", tt.query, tt.sort)
				assert.Equal(t, len(tt.want), res.Total, tt.query)
			}
		})
	}
}

func TestPagination(t *testing.T) {
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			req := unitsearch.SearchRequest{Query: "position:>0", Sort: "position", Limit: 2}

			var got []int64
			for i := 0; i < 5; i++ {
				res, err := e.Search(ctx, req)
				require.NoError(t, err)
				assert.Equal(t, 5, res.Total)
				got = append(got, res.IDs...)
				if !res.HasMore {
					assert.Empty(t, res.NextToken)
					break
				}
				req.Token = res.NextToken
			}
			assert.Equal(t, []int64{3, 1, 5, 2, 4}, got)

			_, err := e.Search(ctx, unitsearch.SearchRequest{Query: "position:>1", Sort: "position", Token: req.Token})
			assert.True(t, unitsearch.IsKind(err, unitsearch.ErrCursor), "got %v", err)
		})
	}
}

func TestFacetsAndStats(t *testing.T) {
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			counts, err := e.Facets(ctx, "NOT state:read-only", "state", 0)
			require.NoError(t, err)
			assert.Equal(t, []storage.FacetCount{
				{Value: "needs-editing", Count: 2},
				{Value: "approved", Count: 1},
				{Value: "translated", Count: 1},
			}, counts)

			stats, err := e.Stats(ctx, "component:docs", "position")
			require.NoError(t, err)
			assert.Equal(t, uint64(2), stats.Count)
			assert.Equal(t, 9.0, *stats.Min)
			assert.Equal(t, 101.0, *stats.Max)
		})
	}
}

func TestSearchWithRecordsAndDelete(t *testing.T) {
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			res, err := e.Search(ctx, unitsearch.SearchRequest{Query: "source:hello", WithRecords: true})
			require.NoError(t, err)
			require.Len(t, res.Records, 2)
			assert.Equal(t, "hallo", res.Records[0].Strings["target"])
			assert.Equal(t, time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC), res.Records[0].Times["changed"].UTC())
			assert.Equal(t, []string{"hello"}, res.Highlight)

			b := unitsearch.NewBatch()
			b.Delete(1)
			_, err = e.Apply(ctx, b)
			require.NoError(t, err)

			res, err = e.Search(ctx, unitsearch.SearchRequest{Query: "source:hello"})
			require.NoError(t, err)
			assert.Equal(t, []int64{3}, res.IDs)
		})
	}
}

func TestSQLiteReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.db")
	cfg := unitsearch.StoreConfig{Backend: storage.BackendSQLite, SQLitePath: path}
	_ = newEngine(t, cfg)

	store, err := unitsearch.OpenStore(context.Background(), cfg, fields.Units.Name())
	require.NoError(t, err)
	e := unitsearch.NewEngine(fields.Units, store, unitsearch.Options{})
	defer e.Close()

	res, err := e.Search(context.Background(), unitsearch.SearchRequest{Query: "state:approved"})
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, res.IDs)
}

func TestExplainSQLite(t *testing.T) {
	e := engines(t)["sqlite"]
	ex, err := e.Explain("source:hello NOT pending:true", "", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "(and (source contains \"hello\") (pending = false))", ex.Predicate)
	assert.Contains(t, ex.SQL, "instr(casefold(value), casefold(?)) > 0")
	assert.Equal(t, []string{"id"}, ex.Order)
	assert.NotEmpty(t, ex.Steps)
}
