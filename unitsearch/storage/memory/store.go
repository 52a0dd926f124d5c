// Package memory is an in-process record store. Predicates are
// evaluated into roaring bitmaps of record slots and combined with set
// algebra.
package memory

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

// ctxCheckEvery is how many records a scan visits between context checks.
const ctxCheckEvery = 1024

type Store struct {
	mu      sync.RWMutex
	slots   map[int64]uint32
	records []*storage.Record
	live    *roaring.Bitmap
}

func New() *Store {
	return &Store{
		slots: make(map[int64]uint32),
		live:  roaring.New(),
	}
}

func (s *Store) Backend() storage.Backend { return storage.BackendMemory }

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.live.GetCardinality())
}

func (s *Store) Put(ctx context.Context, records ...storage.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range records {
		rec := records[i].Clone()
		slot, ok := s.slots[rec.ID]
		if !ok {
			slot = uint32(len(s.records))
			s.records = append(s.records, nil)
			s.slots[rec.ID] = slot
		}
		s.records[slot] = &rec
		s.live.Add(slot)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ids ...int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		slot, ok := s.slots[id]
		if !ok {
			continue
		}
		s.live.Remove(slot)
		s.records[slot] = nil
		delete(s.slots, id)
	}
	return nil
}

func (s *Store) Fetch(ctx context.Context, ids []int64) ([]storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.Record, 0, len(ids))
	for _, id := range ids {
		if slot, ok := s.slots[id]; ok {
			out = append(out, s.records[slot].Clone())
		}
	}
	return out, nil
}

// Search evaluates the predicate under a read lock, so the page and the
// total come from the same snapshot.
func (s *Store) Search(ctx context.Context, q storage.Query) (storage.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := &evaluator{store: s, ctx: ctx}
	bm, err := e.eval(q.Predicate)
	if err != nil {
		return storage.Result{}, err
	}

	matched := make([]*storage.Record, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		matched = append(matched, s.records[it.Next()])
	}
	sortRecords(matched, q.Order)

	res := storage.Result{Total: len(matched)}
	if q.Offset < len(matched) {
		end := len(matched)
		if q.Limit > 0 && q.Offset+q.Limit < end {
			end = q.Offset + q.Limit
		}
		for _, rec := range matched[q.Offset:end] {
			res.IDs = append(res.IDs, rec.ID)
		}
	}
	return res, nil
}

// Facet counts matching records per value of a text or set field.
func (s *Store) Facet(ctx context.Context, p planner.Predicate, field planner.Accessor, limit int) ([]storage.FacetCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := &evaluator{store: s, ctx: ctx}
	bm, err := e.eval(p)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	it := bm.Iterator()
	for it.HasNext() {
		for _, v := range uniqueValues(s.records[it.Next()], field) {
			counts[v]++
		}
	}

	out := make([]storage.FacetCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, storage.FacetCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func uniqueValues(rec *storage.Record, field planner.Accessor) []string {
	switch field.Column {
	case planner.ColSet:
		vs := slices.Clone(rec.Sets[field.Field])
		slices.Sort(vs)
		return slices.Compact(vs)
	case planner.ColText:
		if v, ok := rec.Strings[field.Field]; ok {
			return []string{v}
		}
	}
	return nil
}

type evaluator struct {
	store   *Store
	ctx     context.Context
	visited int
}

func (e *evaluator) eval(p planner.Predicate) (*roaring.Bitmap, error) {
	if err := e.ctx.Err(); err != nil {
		return nil, err
	}

	switch q := p.(type) {
	case planner.And:
		left, err := e.eval(q.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.eval(q.Right)
		if err != nil {
			return nil, err
		}
		return roaring.And(left, right), nil

	case planner.Or:
		left, err := e.eval(q.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.eval(q.Right)
		if err != nil {
			return nil, err
		}
		return roaring.Or(left, right), nil

	case planner.Not:
		inner, err := e.eval(q.Inner)
		if err != nil {
			return nil, err
		}
		return roaring.AndNot(e.store.live, inner), nil

	case planner.MatchAll:
		return e.store.live.Clone(), nil

	case planner.TextMatch:
		match, err := textMatcher(q)
		if err != nil {
			return nil, err
		}
		return e.scan(func(rec *storage.Record) bool {
			return anyValue(rec, q.Field, match)
		})

	case planner.In:
		want := valueSet(q.Values, q.Fold)
		return e.scan(func(rec *storage.Record) bool {
			v, ok := stringValue(rec, q.Field)
			if !ok {
				return false
			}
			if q.Fold {
				v = planner.Fold(v)
			}
			return want[v] != q.Negate
		})

	case planner.Has:
		want := valueSet(q.Values, q.Fold)
		return e.scan(func(rec *storage.Record) bool {
			return anyValue(rec, q.Field, func(v string) bool {
				if q.Fold {
					v = planner.Fold(v)
				}
				return want[v]
			})
		})

	case planner.IntCmp:
		return e.scan(func(rec *storage.Record) bool {
			v, ok := intValue(rec, q.Field)
			return ok && q.Op.Eval(compareInt(v, q.Value))
		})

	case planner.IntRange:
		return e.scan(func(rec *storage.Record) bool {
			v, ok := intValue(rec, q.Field)
			return ok && v >= q.Lo && v <= q.Hi
		})

	case planner.TimeCmp:
		want := planner.EpochMS(q.Value)
		return e.scan(func(rec *storage.Record) bool {
			v, ok := rec.Times[q.Field.Field]
			return ok && q.Op.Eval(compareInt(planner.EpochMS(v), want))
		})

	case planner.TimeRange:
		start, end := planner.EpochMS(q.Start), planner.EpochMS(q.End)
		return e.scan(func(rec *storage.Record) bool {
			v, ok := rec.Times[q.Field.Field]
			if !ok {
				return false
			}
			ms := planner.EpochMS(v)
			return ms >= start && ms < end
		})

	case planner.BoolEq:
		return e.scan(func(rec *storage.Record) bool {
			v, ok := rec.Bools[q.Field.Field]
			return ok && v == q.Value
		})

	case planner.AllWords:
		words := make([]string, len(q.Words))
		for i, w := range q.Words {
			words[i] = planner.Fold(w)
		}
		return e.scan(func(rec *storage.Record) bool {
			for _, w := range words {
				found := false
				for _, f := range q.Fields {
					if anyValue(rec, f, func(v string) bool { return strings.Contains(planner.Fold(v), w) }) {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
			return true
		})
	}
	return nil, fmt.Errorf("memory: unsupported predicate %T", p)
}

// scan collects the live slots whose record satisfies match.
func (e *evaluator) scan(match func(*storage.Record) bool) (*roaring.Bitmap, error) {
	out := roaring.New()
	it := e.store.live.Iterator()
	for it.HasNext() {
		e.visited++
		if e.visited%ctxCheckEvery == 0 {
			if err := e.ctx.Err(); err != nil {
				return nil, err
			}
		}
		slot := it.Next()
		if match(e.store.records[slot]) {
			out.Add(slot)
		}
	}
	return out, nil
}

func textMatcher(q planner.TextMatch) (func(string) bool, error) {
	if q.Mode == planner.TextRegex {
		re, err := regexp.Compile(q.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q for %s: %w", q.Value, q.Field.Field, err)
		}
		return re.MatchString, nil
	}
	needle := planner.Fold(q.Value)
	return func(v string) bool {
		return strings.Contains(planner.Fold(v), needle)
	}, nil
}

func valueSet(values []string, fold bool) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if fold {
			v = planner.Fold(v)
		}
		set[v] = true
	}
	return set
}

func stringValue(rec *storage.Record, field planner.Accessor) (string, bool) {
	v, ok := rec.Strings[field.Field]
	return v, ok
}

func anyValue(rec *storage.Record, field planner.Accessor, match func(string) bool) bool {
	if field.Column == planner.ColSet {
		for _, v := range rec.Sets[field.Field] {
			if match(v) {
				return true
			}
		}
		return false
	}
	v, ok := stringValue(rec, field)
	return ok && match(v)
}

func intValue(rec *storage.Record, field planner.Accessor) (int64, bool) {
	if field.Column == planner.ColID {
		return rec.ID, true
	}
	v, ok := rec.Ints[field.Field]
	return v, ok
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
