package storage

import (
	"context"
	"database/sql"
	"maps"
	"slices"
	"time"

	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/storage/sqlbuilder"
)

type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Record is one searchable unit. Single-valued string fields live in
// Strings and multi-valued ones in Sets. Optional fields that are unset
// are absent from their map.
type Record struct {
	ID      int64                `json:"id"`
	Strings map[string]string    `json:"strings,omitempty"`
	Sets    map[string][]string  `json:"sets,omitempty"`
	Ints    map[string]int64     `json:"ints,omitempty"`
	Bools   map[string]bool      `json:"bools,omitempty"`
	Times   map[string]time.Time `json:"times,omitempty"`
}

// Clone returns a copy of r that shares no maps or slices with it.
func (r Record) Clone() Record {
	out := Record{
		ID:      r.ID,
		Strings: maps.Clone(r.Strings),
		Ints:    maps.Clone(r.Ints),
		Bools:   maps.Clone(r.Bools),
		Times:   maps.Clone(r.Times),
	}
	if r.Sets != nil {
		out.Sets = make(map[string][]string, len(r.Sets))
		for k, v := range r.Sets {
			out.Sets[k] = slices.Clone(v)
		}
	}
	return out
}

// Query is one filtered, ordered page request against a store
type Query struct {
	Predicate planner.Predicate
	Order     []planner.SortKey
	Offset    int
	Limit     int
}

// Result is a page of record ids and the total number of matches. Both
// come from the same snapshot of the store.
type Result struct {
	IDs   []int64
	Total int
}

//go:generate mockgen -destination mock/store.go -package mock github.com/nonibytes/unitsearch/unitsearch/storage RecordStore

// RecordStore evaluates compiled predicates. Implementations must be
// safe for concurrent use and honour ctx cancellation.
type RecordStore interface {
	Backend() Backend
	Search(ctx context.Context, q Query) (Result, error)
}

// FacetCount is the number of matching records holding a value
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Faceter is implemented by stores that can count values of a string
// field across the records matching a predicate.
type Faceter interface {
	Facet(ctx context.Context, p planner.Predicate, field planner.Accessor, limit int) ([]FacetCount, error)
}

// Loader is implemented by stores that accept writes
type Loader interface {
	Put(ctx context.Context, records ...Record) error
	Delete(ctx context.Context, ids ...int64) error
}

// Fetcher returns stored records by id, in the order asked for. Unknown
// ids are skipped.
type Fetcher interface {
	Fetch(ctx context.Context, ids []int64) ([]Record, error)
}

// Explainer is implemented by stores that can show how a query would run
type Explainer interface {
	Explain(q Query) (string, []string)
}

// Adapter abstracts database-specific operations for SQLStore
type Adapter interface {
	Backend() Backend
	PlaceholderStyle() sqlbuilder.PlaceholderStyle
	Dialect() planner.Dialect

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error

	CreateSchema(ctx context.Context, db *sql.DB, tables planner.Tables) error
	SQL(tables planner.Tables) SQL

	// SearchTxOptions are used for the transaction that runs the count
	// and page queries of one search.
	SearchTxOptions() *sql.TxOptions
}

// SQL holds prepared SQL templates for record maintenance
type SQL struct {
	GetMeta string
	SetMeta string

	InsertRecord string
	DeleteRecord string

	DeleteTextByRecord string
	DeleteIntByRecord  string
	DeleteBoolByRecord string
	DeleteTimeByRecord string

	InsertText string
	InsertInt  string
	InsertBool string
	InsertTime string

	// SelectRecords is completed with a placeholder list for ids.
	SelectRecords string
}
