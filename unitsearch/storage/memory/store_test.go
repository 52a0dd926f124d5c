package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/nonibytes/unitsearch/unitsearch/fields"
	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/query"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

var testNow = time.Date(2024, time.March, 15, 13, 45, 0, 0, time.UTC)

type unit struct {
	id       int64
	source   string
	target   string
	state    string
	position int64
	changed  *time.Time
	labels   []string
}

func (u unit) record() storage.Record {
	rec := storage.Record{
		ID: u.id,
		Strings: map[string]string{
			"source":  u.source,
			"target":  u.target,
			"context": "",
			"state":   u.state,
		},
		Sets:  map[string][]string{"label": u.labels},
		Ints:  map[string]int64{"position": u.position},
		Bools: map[string]bool{"pending": false},
		Times: map[string]time.Time{},
	}
	if u.changed != nil {
		rec.Times["changed"] = *u.changed
	}
	return rec
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func newStore(t *testing.T, units ...unit) *Store {
	t.Helper()
	s := New()
	recs := make([]storage.Record, len(units))
	for i, u := range units {
		recs[i] = u.record()
	}
	require.NoError(t, s.Put(context.Background(), recs...))
	return s
}

func compile(t *testing.T, input, sort string) planner.Compiled {
	t.Helper()
	node, err := query.ParseString(input, fields.Units, query.Options{Now: testNow})
	require.NoError(t, err, input)
	order, err := fields.Units.ParseOrdering(sort)
	require.NoError(t, err)
	return planner.Compile(fields.Units, node, order)
}

func search(t *testing.T, s *Store, input string) []int64 {
	t.Helper()
	c := compile(t, input, "")
	res, err := s.Search(context.Background(), storage.Query{Predicate: c.Predicate, Order: c.Order, Limit: 100})
	require.NoError(t, err, input)
	assert.Equal(t, len(res.IDs), res.Total)
	return res.IDs
}

func TestSearchStateAndSource(t *testing.T) {
	s := newStore(t,
		unit{id: 1, source: "hello", state: "translated"},
		unit{id: 2, source: "bar", state: "needs-editing"},
		unit{id: 3, source: "hello", state: "needs-editing"},
	)
	assert.Equal(t, []int64{1}, search(t, s, "state:translated AND (source:hello OR source:bar)"))
}

func TestSearchDateRangeBoundaries(t *testing.T) {
	s := newStore(t,
		unit{id: 1, state: "translated", changed: at("2019-03-01T00:00:00Z")},
		unit{id: 2, state: "translated", changed: at("2019-04-01T23:59:59.999Z")},
		unit{id: 3, state: "translated", changed: at("2019-02-28T12:00:00Z")},
		unit{id: 4, state: "translated", changed: at("2019-04-02T00:00:00Z")},
		unit{id: 5, state: "translated"},
	)
	assert.Equal(t, []int64{1, 2}, search(t, s, "changed:[2019-03-01 to 2019-04-01]"))
}

func TestSearchQuotedFreeText(t *testing.T) {
	s := newStore(t,
		unit{id: 1, source: "a string, quoted: this is it", state: "translated"},
		unit{id: 2, source: "this is a string", state: "translated"},
		unit{id: 3, source: "QUOTED", target: "This Is A String", state: "translated"},
	)
	assert.Equal(t, []int64{1, 3}, search(t, s, `"this is a quoted string"`))
}

func TestSearchRangeIsInclusive(t *testing.T) {
	s := newStore(t,
		unit{id: 9, state: "empty", position: 9},
		unit{id: 10, state: "empty", position: 10},
		unit{id: 100, state: "empty", position: 100},
		unit{id: 101, state: "empty", position: 101},
	)
	assert.Equal(t, []int64{10, 100}, search(t, s, "position:[10 to 100]"))
}

func TestSearchExactVersusContains(t *testing.T) {
	s := newStore(t,
		unit{id: 1, source: "hello world", state: "translated"},
		unit{id: 2, source: "hello", state: "translated"},
		unit{id: 3, source: "Hello", state: "translated"},
	)
	assert.Equal(t, []int64{2}, search(t, s, "source:=hello"))
	assert.Equal(t, []int64{1, 2, 3}, search(t, s, "source:hello"))
}

func TestSearchRegex(t *testing.T) {
	s := newStore(t,
		unit{id: 1, source: "item 3", state: "translated"},
		unit{id: 2, source: "item 7", state: "translated"},
	)
	assert.Equal(t, []int64{1}, search(t, s, `source:r"[2-5]"`))

	c := compile(t, `source:r"(unclosed"`, "")
	_, err := s.Search(context.Background(), storage.Query{Predicate: c.Predicate, Order: c.Order, Limit: 10})
	assert.ErrorContains(t, err, "invalid regex")
}

func TestSearchNegation(t *testing.T) {
	s := newStore(t,
		unit{id: 1, state: "translated", changed: at("2021-01-01T00:00:00Z")},
		unit{id: 2, state: "needs-editing", changed: at("2019-01-01T00:00:00Z")},
		unit{id: 3, state: "empty"},
	)
	assert.Equal(t, []int64{2, 3}, search(t, s, "NOT state:translated"))
	assert.Equal(t, []int64{2, 3}, search(t, s, "NOT changed:>2020-01-01"))
	assert.Equal(t, []int64{1, 2}, search(t, s, "state:>=needs-editing"))
}

func TestSearchSetFields(t *testing.T) {
	s := newStore(t,
		unit{id: 1, state: "empty", labels: []string{"Urgent", "ui"}},
		unit{id: 2, state: "empty", labels: []string{"docs"}},
		unit{id: 3, state: "empty"},
	)
	assert.Equal(t, []int64{1}, search(t, s, "label:urgent"))
	assert.Equal(t, []int64{2, 3}, search(t, s, "NOT label:urgent"))
}

func TestSearchOrderAndPaging(t *testing.T) {
	s := newStore(t,
		unit{id: 1, state: "empty", changed: at("2020-01-01T00:00:00Z")},
		unit{id: 2, state: "empty"},
		unit{id: 3, state: "empty", changed: at("2022-01-01T00:00:00Z")},
		unit{id: 4, state: "empty", changed: at("2020-01-01T00:00:00Z")},
	)
	c := compile(t, "state:empty", "-changed")

	res, err := s.Search(context.Background(), storage.Query{Predicate: c.Predicate, Order: c.Order, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 4, 2}, res.IDs)

	res, err = s.Search(context.Background(), storage.Query{Predicate: c.Predicate, Order: c.Order, Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, res.IDs)
	assert.Equal(t, 4, res.Total)

	res, err = s.Search(context.Background(), storage.Query{Predicate: c.Predicate, Order: c.Order, Offset: 10, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, res.IDs)
	assert.Equal(t, 4, res.Total)
}

func TestSearchCanceled(t *testing.T) {
	s := newStore(t, unit{id: 1, state: "empty"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := compile(t, "state:empty", "")
	_, err := s.Search(ctx, storage.Query{Predicate: c.Predicate, Order: c.Order, Limit: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPutReplacesAndDeleteRemoves(t *testing.T) {
	s := newStore(t,
		unit{id: 1, source: "old", state: "empty"},
		unit{id: 2, source: "other", state: "empty"},
	)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, unit{id: 1, source: "new", state: "empty"}.record()))
	assert.Empty(t, search(t, s, "source:old"))
	assert.Equal(t, []int64{1}, search(t, s, "source:new"))

	require.NoError(t, s.Delete(ctx, 1, 42))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []int64{2}, search(t, s, "state:empty"))

	recs, err := s.Fetch(ctx, []int64{2, 1})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "other", recs[0].Strings["source"])
}

func TestFacet(t *testing.T) {
	s := newStore(t,
		unit{id: 1, state: "translated", labels: []string{"ui", "ui"}},
		unit{id: 2, state: "translated", labels: []string{"docs", "ui"}},
		unit{id: 3, state: "empty"},
	)
	ctx := context.Background()
	c := compile(t, "position:0", "")

	counts, err := s.Facet(ctx, c.Predicate, planner.Accessor{Field: "state", Column: planner.ColText}, 10)
	require.NoError(t, err)
	assert.Equal(t, []storage.FacetCount{{Value: "translated", Count: 2}, {Value: "empty", Count: 1}}, counts)

	counts, err = s.Facet(ctx, c.Predicate, planner.Accessor{Field: "label", Column: planner.ColSet}, 1)
	require.NoError(t, err)
	assert.Equal(t, []storage.FacetCount{{Value: "ui", Count: 2}}, counts)
}

func TestSortByStateOrdinal(t *testing.T) {
	s := newStore(t,
		unit{id: 1, state: "empty"},
		unit{id: 2, state: "translated"},
		unit{id: 3, state: "approved"},
		unit{id: 4, state: "needs-editing"},
	)
	c := compile(t, "position:0", "state")
	res, err := s.Search(context.Background(), storage.Query{Predicate: c.Predicate, Order: c.Order, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4, 2, 3}, res.IDs)

	c = compile(t, "position:0", "-state")
	res, err = s.Search(context.Background(), storage.Query{Predicate: c.Predicate, Order: c.Order, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 4, 1}, res.IDs)
}

func TestRecordsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()
	rec := unit{id: 1, source: "hello", state: "empty", labels: []string{"ui"}}.record()
	require.NoError(t, s.Put(ctx, rec))

	rec.Strings["source"] = "changed-after-put"
	rec.Sets["label"][0] = "changed"
	assert.Equal(t, []int64{1}, search(t, s, "source:hello"))
	assert.Empty(t, search(t, s, "source:changed"))
	assert.Equal(t, []int64{1}, search(t, s, "label:ui"))

	got, err := s.Fetch(ctx, []int64{1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	got[0].Strings["source"] = "changed-via-fetch"
	got[0].Sets["label"][0] = "changed"
	assert.Equal(t, []int64{1}, search(t, s, "source:hello"))
	assert.Equal(t, []int64{1}, search(t, s, "label:ui"))
}

// Run with -race: writers and readers share the store.
func TestConcurrentPutAndSearch(t *testing.T) {
	const writers, perWriter = 4, 50
	s := New()
	c := compile(t, "source:hello", "-position")
	q := storage.Query{Predicate: c.Predicate, Order: c.Order, Limit: 10}

	g, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < writers; w++ {
		g.Go(func() error {
			for i := 0; i < perWriter; i++ {
				id := int64(w*perWriter + i + 1)
				rec := unit{id: id, source: "hello", state: "empty", position: id}.record()
				if err := s.Put(ctx, rec); err != nil {
					return err
				}
			}
			return nil
		})
		g.Go(func() error {
			for i := 0; i < perWriter; i++ {
				res, err := s.Search(ctx, q)
				if err != nil {
					return err
				}
				if len(res.IDs) > res.Total || res.Total > writers*perWriter {
					t.Errorf("inconsistent page: %d ids of %d", len(res.IDs), res.Total)
				}
				if _, err := s.Fetch(ctx, res.IDs); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	res, err := s.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, writers*perWriter, res.Total)
	assert.Equal(t, int64(writers*perWriter), res.IDs[0])
}

func TestSearchFullCaseFolding(t *testing.T) {
	s := newStore(t,
		unit{id: 1, source: "Straße", state: "empty"},
		unit{id: 2, source: "strasse", state: "empty"},
	)
	assert.Equal(t, []int64{1, 2}, search(t, s, "source:STRASSE"))
	assert.Equal(t, []int64{1, 2}, search(t, s, "source:straße"))
}
