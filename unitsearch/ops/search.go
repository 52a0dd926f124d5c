package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/nonibytes/unitsearch/unitsearch/metrics"
	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// PageRequest selects one page of results
type PageRequest struct {
	Offset int
	Limit  int
}

// normalize clamps the request to valid bounds.
func (p PageRequest) normalize() PageRequest {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// PageResult is one page of matching record ids. IDs and Total come from
// the same snapshot of the store. Consecutive pages do not: writes between
// two calls may shift records across page boundaries.
type PageResult struct {
	IDs        []int64
	Total      int
	Offset     int
	HasMore    bool
	NextOffset int
}

// ExecutionError wraps a record store failure
type ExecutionError struct {
	Store storage.Backend
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s store: %v", e.Store, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// Execute runs a compiled query against store. Failures, including
// context cancellation and store timeouts, are returned as
// *ExecutionError and never retried.
func Execute(ctx context.Context, store storage.RecordStore, compiled planner.Compiled, page PageRequest) (*PageResult, error) {
	page = page.normalize()

	if err := ctx.Err(); err != nil {
		return nil, &ExecutionError{Store: store.Backend(), Cause: err}
	}

	start := time.Now()
	res, err := store.Search(ctx, storage.Query{
		Predicate: compiled.Predicate,
		Order:     compiled.Order,
		Offset:    page.Offset,
		Limit:     page.Limit,
	})
	metrics.ObserveExecute(string(store.Backend()), time.Since(start), err)
	if err != nil {
		return nil, &ExecutionError{Store: store.Backend(), Cause: err}
	}

	out := &PageResult{
		IDs:    res.IDs,
		Total:  res.Total,
		Offset: page.Offset,
	}
	if out.IDs == nil {
		out.IDs = []int64{}
	}
	if next := page.Offset + len(res.IDs); next < res.Total {
		out.HasMore = true
		out.NextOffset = next
	}
	return out, nil
}
