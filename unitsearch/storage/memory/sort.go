package memory

import (
	"sort"
	"strings"

	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

// sortRecords orders records by keys. Records without a value for a key
// sort after those with one, in either direction.
func sortRecords(records []*storage.Record, keys []planner.SortKey) {
	sort.SliceStable(records, func(i, j int) bool {
		for _, key := range keys {
			c, decided := compareKey(records[i], records[j], key)
			if c == 0 {
				continue
			}
			if key.Desc && !decided {
				c = -c
			}
			return c < 0
		}
		return false
	})
}

// compareKey compares two records on one field. decided is set when the
// result comes from a missing value and must not be flipped.
func compareKey(a, b *storage.Record, key planner.SortKey) (c int, decided bool) {
	field := key.Field
	switch field.Column {
	case planner.ColID:
		return compareInt(a.ID, b.ID), false
	case planner.ColInt:
		va, oka := a.Ints[field.Field]
		vb, okb := b.Ints[field.Field]
		if c, ok := presence(oka, okb); ok {
			return c, true
		}
		return compareInt(va, vb), false
	case planner.ColTime:
		va, oka := a.Times[field.Field]
		vb, okb := b.Times[field.Field]
		if c, ok := presence(oka, okb); ok {
			return c, true
		}
		return compareInt(planner.EpochMS(va), planner.EpochMS(vb)), false
	case planner.ColBool:
		va, oka := a.Bools[field.Field]
		vb, okb := b.Bools[field.Field]
		if c, ok := presence(oka, okb); ok {
			return c, true
		}
		return compareInt(boolInt(va), boolInt(vb)), false
	default:
		va, oka := a.Strings[field.Field]
		vb, okb := b.Strings[field.Field]
		if c, ok := presence(oka, okb); ok {
			return c, true
		}
		if len(key.Rank) > 0 {
			return compareInt(int64(key.Ordinal(va)), int64(key.Ordinal(vb))), false
		}
		return strings.Compare(va, vb), false
	}
}

// presence orders a present value before an absent one.
func presence(a, b bool) (int, bool) {
	switch {
	case a && b:
		return 0, false
	case a:
		return -1, true
	case b:
		return 1, true
	}
	return 0, true
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
