package unitsearch

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/nonibytes/unitsearch/unitsearch/fields"
	"github.com/nonibytes/unitsearch/unitsearch/metrics"
	"github.com/nonibytes/unitsearch/unitsearch/ops"
	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/query"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

// Engine answers structured queries over one record kind. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	reg    *fields.Registry
	store  storage.RecordStore
	opts   Options
	logger *slog.Logger
}

// NewEngine binds a registry to a store. Zero fields of opts take their
// defaults.
func NewEngine(reg *fields.Registry, store storage.RecordStore, opts Options) *Engine {
	def := DefaultOptions()
	if opts.Now == nil {
		opts.Now = def.Now
	}
	if opts.Location == nil {
		opts.Location = def.Location
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = def.DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = def.MaxLimit
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.MaxTerms <= 0 {
		opts.MaxTerms = def.MaxTerms
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{reg: reg, store: store, opts: opts, logger: logger.With("kind", reg.Name())}
}

// Registry returns the field registry
func (e *Engine) Registry() *fields.Registry { return e.reg }

// Store returns the record store
func (e *Engine) Store() storage.RecordStore { return e.store }

// Close closes the store if it holds resources.
func (e *Engine) Close() error {
	if c, ok := e.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (e *Engine) now(override time.Time) time.Time {
	if override.IsZero() {
		override = e.opts.Now()
	}
	return override.In(e.opts.Location)
}

// Parse parses query text against the registry. Empty text matches
// every record.
func (e *Engine) Parse(text string, now time.Time) (query.Node, error) {
	if strings.TrimSpace(text) == "" {
		metrics.ObserveParse(e.reg.Name(), "ok")
		return query.MatchAll{}, nil
	}
	node, err := query.ParseString(text, e.reg, query.Options{
		Now:    e.now(now),
		Limits: query.Limits{MaxDepth: e.opts.MaxDepth, MaxTerms: e.opts.MaxTerms},
	})
	if err != nil {
		qe := fromQueryError(err)
		metrics.ObserveParse(e.reg.Name(), string(qe.Kind))
		return nil, qe
	}
	metrics.ObserveParse(e.reg.Name(), "ok")
	return node, nil
}

// Compile parses text and lowers it with the given ordering.
func (e *Engine) Compile(text, sort string, now time.Time) (planner.Compiled, query.Node, error) {
	node, err := e.Parse(text, now)
	if err != nil {
		return planner.Compiled{}, nil, err
	}
	order, err := e.reg.ParseOrdering(sort)
	if err != nil {
		return planner.Compiled{}, nil, Wrap(ErrSort, "invalid sort", err)
	}
	return planner.Compile(e.reg, node, order), node, nil
}

// Search runs one page of a query. A malformed query never reaches the
// store.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	start := time.Now()

	hash := ops.QueryHash(e.reg.Name(), req.Query, req.Sort)
	page, err := e.page(req, hash)
	if err != nil {
		return nil, err
	}

	compiled, node, err := e.Compile(req.Query, req.Sort, req.Now)
	if err != nil {
		return nil, err
	}

	res, err := ops.Execute(ctx, e.store, compiled, page)
	if err != nil {
		e.logger.WarnContext(ctx, "search failed", "query", req.Query, "error", err)
		return nil, fromExecError("search", err)
	}

	out := &SearchResult{
		IDs:       res.IDs,
		Total:     res.Total,
		Offset:    res.Offset,
		HasMore:   res.HasMore,
		Highlight: query.HighlightTerms(node),
	}
	if res.HasMore {
		out.NextToken = ops.EncodePageToken(ops.PageToken{Offset: res.NextOffset, Hash: hash})
	}
	if req.WithRecords {
		if out.Records, err = e.Fetch(ctx, res.IDs); err != nil {
			return nil, err
		}
	}

	e.logger.DebugContext(ctx, "search",
		"query", req.Query,
		"sort", req.Sort,
		"offset", res.Offset,
		"returned", len(res.IDs),
		"total", res.Total,
		"elapsed", time.Since(start),
	)
	return out, nil
}

// page resolves the offset and limit of a request.
func (e *Engine) page(req SearchRequest, hash string) (ops.PageRequest, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = e.opts.DefaultLimit
	}
	if limit > e.opts.MaxLimit {
		limit = e.opts.MaxLimit
	}
	offset := req.Offset
	if req.Token != "" {
		tok, err := ops.DecodePageToken(req.Token, hash)
		if err != nil {
			return ops.PageRequest{}, Wrap(ErrCursor, "invalid page token", err)
		}
		offset = tok.Offset
	}
	if offset < 0 {
		return ops.PageRequest{}, CursorError("negative offset")
	}
	return ops.PageRequest{Offset: offset, Limit: limit}, nil
}

// Fetch returns the stored records for ids, in order.
func (e *Engine) Fetch(ctx context.Context, ids []int64) ([]storage.Record, error) {
	fetcher, ok := e.store.(storage.Fetcher)
	if !ok {
		return nil, New(ErrFeature, string(e.store.Backend())+" store cannot fetch records")
	}
	recs, err := fetcher.Fetch(ctx, ids)
	if err != nil {
		return nil, Wrap(ErrExecution, "fetch records", err)
	}
	return recs, nil
}

// Facets counts the records matching text per value of field.
func (e *Engine) Facets(ctx context.Context, text, field string, limit int) ([]storage.FacetCount, error) {
	spec, ok := e.reg.Resolve(field)
	if !ok {
		return nil, UnknownFieldError(field)
	}
	if !ops.Facetable(spec) {
		return nil, &Error{Kind: ErrTypeMismatch, Message: "field cannot be faceted", Field: spec.Name}
	}
	if _, ok := e.store.(storage.Faceter); !ok {
		return nil, New(ErrFeature, string(e.store.Backend())+" store does not support facets")
	}

	compiled, _, err := e.Compile(text, "", time.Time{})
	if err != nil {
		return nil, err
	}
	counts, err := ops.DiscoverValues(ctx, e.store, compiled, spec, limit)
	if err != nil {
		return nil, fromExecError("facets", err)
	}
	return counts, nil
}

// Stats summarizes an integer or timestamp field over the records
// matching text.
func (e *Engine) Stats(ctx context.Context, text, field string) (*ops.StatsResult, error) {
	spec, ok := e.reg.Resolve(field)
	if !ok {
		return nil, UnknownFieldError(field)
	}
	if spec.Type != fields.Integer && spec.Type != fields.Timestamp {
		return nil, &Error{Kind: ErrTypeMismatch, Message: "stats need an integer or timestamp field", Field: spec.Name}
	}
	if _, ok := e.store.(storage.Fetcher); !ok {
		return nil, New(ErrFeature, string(e.store.Backend())+" store cannot fetch records")
	}

	compiled, _, err := e.Compile(text, "", time.Time{})
	if err != nil {
		return nil, err
	}
	res, err := ops.Stats(ctx, e.store, compiled, spec)
	if err != nil {
		return nil, fromExecError("stats", err)
	}
	return res, nil
}

// Explain shows the parsed query, the compiled predicate and, for SQL
// stores, the page query.
func (e *Engine) Explain(text, sort string, now time.Time) (*Explanation, error) {
	compiled, node, err := e.Compile(text, sort, now)
	if err != nil {
		return nil, err
	}
	out := &Explanation{
		AST:       query.Format(node),
		Predicate: planner.Describe(compiled.Predicate),
	}
	for _, key := range compiled.Order {
		out.Order = append(out.Order, key.String())
	}
	if ex, ok := e.store.(storage.Explainer); ok {
		out.SQL, out.Steps = ex.Explain(storage.Query{
			Predicate: compiled.Predicate,
			Order:     compiled.Order,
			Limit:     e.opts.DefaultLimit,
		})
	}
	return out, nil
}

// Apply executes a batch of writes in order. It returns the number of
// operations applied before the first failure.
func (e *Engine) Apply(ctx context.Context, b Batch) (int, error) {
	if b.Empty() {
		return 0, nil
	}
	if _, ok := e.store.(storage.Loader); !ok {
		return 0, New(ErrFeature, string(e.store.Backend())+" store does not accept writes")
	}

	count := 0
	for _, op := range b.ops {
		switch op.Kind {
		case batchPut:
			rec, err := ops.ParseDocument(e.reg, op.Doc)
			if err != nil {
				return count, Wrap(ErrSchema, "decode record", err)
			}
			if err := ops.PutRecords(ctx, e.store, []storage.Record{rec}, 1); err != nil {
				return count, fromExecError("put", err)
			}
		case batchDelete:
			if err := ops.DeleteRecords(ctx, e.store, []int64{op.ID}); err != nil {
				return count, fromExecError("delete", err)
			}
		}
		count++
	}
	return count, nil
}

// Load writes already decoded records in batches of batchSize.
func (e *Engine) Load(ctx context.Context, records []storage.Record, batchSize int) error {
	if err := ops.PutRecords(ctx, e.store, records, batchSize); err != nil {
		return fromExecError("load", err)
	}
	return nil
}
