package ops

import (
	"context"
	"fmt"
	"slices"

	"github.com/nonibytes/unitsearch/unitsearch/fields"
	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

// StatsResult contains statistics for a field. Timestamps are reported
// in epoch milliseconds.
type StatsResult struct {
	Field  string   `json:"field"`
	Count  uint64   `json:"count"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Avg    *float64 `json:"avg,omitempty"`
	Median *float64 `json:"median,omitempty"`
}

// Stats computes statistics of an integer or timestamp field over the
// records matching compiled. Records without a value are not counted.
func Stats(ctx context.Context, store storage.RecordStore, compiled planner.Compiled, spec *fields.FieldSpec) (*StatsResult, error) {
	if spec.Type != fields.Integer && spec.Type != fields.Timestamp {
		return nil, fmt.Errorf("stats only available for integer/timestamp fields, got %s", spec.Type)
	}
	fetcher, ok := store.(storage.Fetcher)
	if !ok {
		return nil, fmt.Errorf("%s store cannot fetch records", store.Backend())
	}

	var values []float64
	page := PageRequest{Limit: MaxLimit}
	for {
		res, err := Execute(ctx, store, compiled, page)
		if err != nil {
			return nil, err
		}
		records, err := fetcher.Fetch(ctx, res.IDs)
		if err != nil {
			return nil, &ExecutionError{Store: store.Backend(), Cause: err}
		}
		for _, rec := range records {
			if v, ok := numericValue(rec, spec); ok {
				values = append(values, v)
			}
		}
		if !res.HasMore {
			break
		}
		page.Offset = res.NextOffset
	}

	result := &StatsResult{Field: spec.Name, Count: uint64(len(values))}
	if len(values) == 0 {
		return result, nil
	}

	slices.Sort(values)
	var sum float64
	for _, v := range values {
		sum += v
	}
	minV, maxV := values[0], values[len(values)-1]
	avg := sum / float64(len(values))
	median := values[len(values)/2]
	if len(values)%2 == 0 {
		median = (values[len(values)/2-1] + values[len(values)/2]) / 2
	}
	result.Min, result.Max, result.Avg, result.Median = &minV, &maxV, &avg, &median
	return result, nil
}

func numericValue(rec storage.Record, spec *fields.FieldSpec) (float64, bool) {
	if spec.Name == fields.IDField {
		return float64(rec.ID), true
	}
	if spec.Type == fields.Timestamp {
		t, ok := rec.Times[spec.Name]
		return float64(planner.EpochMS(t)), ok
	}
	n, ok := rec.Ints[spec.Name]
	return float64(n), ok
}
