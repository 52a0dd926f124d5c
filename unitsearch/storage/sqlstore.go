package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/storage/sqlbuilder"
)

const schemaVersion = "1"

// SQLStore is a RecordStore over a relational database. Each record
// kind gets its own set of tables; values are kept one row per field
// value so that every predicate is a set operation on record ids.
type SQLStore struct {
	adapter Adapter
	db      *sql.DB
	kind    string
	tables  planner.Tables
	sqlt    SQL
}

// OpenSQL connects through adapter and prepares the tables for kind.
func OpenSQL(ctx context.Context, adapter Adapter, kind string) (*SQLStore, error) {
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	tables := planner.TablesFor(kind)
	if err := adapter.CreateSchema(ctx, db, tables); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &SQLStore{adapter: adapter, db: db, kind: kind, tables: tables, sqlt: adapter.SQL(tables)}
	if _, err := db.ExecContext(ctx, s.sqlt.SetMeta, kind+"_version", schemaVersion); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("write meta: %w", err)
	}
	return s, nil
}

func (s *SQLStore) Backend() Backend { return s.adapter.Backend() }

// DB exposes the underlying handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the database handle.
func (s *SQLStore) Close() error {
	err := s.db.Close()
	if aerr := s.adapter.Close(); err == nil {
		err = aerr
	}
	return err
}

// Search runs the count and page queries in one transaction so both see
// the same snapshot.
func (s *SQLStore) Search(ctx context.Context, q Query) (Result, error) {
	countB := sqlbuilder.New(s.adapter.PlaceholderStyle())
	countSQL := planner.BuildCountSQL(s.tables, s.adapter.Dialect(), countB, q.Predicate)

	pageB := sqlbuilder.New(s.adapter.PlaceholderStyle())
	pageSQL, _ := planner.BuildSearchSQL(s.tables, s.adapter.Dialect(), pageB, planner.Compiled{Predicate: q.Predicate, Order: q.Order}, q.Limit, q.Offset)

	tx, err := s.db.BeginTx(ctx, s.adapter.SearchTxOptions())
	if err != nil {
		return Result{}, fmt.Errorf("begin search tx: %w", err)
	}
	defer tx.Rollback()

	var res Result
	if err := tx.QueryRowContext(ctx, countSQL, countB.Args()...).Scan(&res.Total); err != nil {
		return Result{}, fmt.Errorf("count matches: %w", err)
	}

	rows, err := tx.QueryContext(ctx, pageSQL, pageB.Args()...)
	if err != nil {
		return Result{}, fmt.Errorf("query page: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return Result{}, fmt.Errorf("scan id: %w", err)
		}
		res.IDs = append(res.IDs, id)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate page: %w", err)
	}
	return res, nil
}

// Explain returns the page query and its CTE steps.
func (s *SQLStore) Explain(q Query) (string, []string) {
	b := sqlbuilder.New(s.adapter.PlaceholderStyle())
	return planner.BuildSearchSQL(s.tables, s.adapter.Dialect(), b, planner.Compiled{Predicate: q.Predicate, Order: q.Order}, q.Limit, q.Offset)
}

// Facet counts matching records per value of a string field.
func (s *SQLStore) Facet(ctx context.Context, p planner.Predicate, field planner.Accessor, limit int) ([]FacetCount, error) {
	b := sqlbuilder.New(s.adapter.PlaceholderStyle())
	sqlStr := planner.BuildFacetSQL(s.tables, s.adapter.Dialect(), b, p, field, limit)

	rows, err := s.db.QueryContext(ctx, sqlStr, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("query facets: %w", err)
	}
	defer rows.Close()

	var out []FacetCount
	for rows.Next() {
		var fc FacetCount
		if err := rows.Scan(&fc.Value, &fc.Count); err != nil {
			return nil, fmt.Errorf("scan facet: %w", err)
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}

// Put replaces records by id.
func (s *SQLStore) Put(ctx context.Context, records ...Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		if err := s.deleteTx(ctx, tx, rec.ID); err != nil {
			return err
		}
		if err := s.insertTx(ctx, tx, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Delete removes records by id. Unknown ids are ignored.
func (s *SQLStore) Delete(ctx context.Context, ids ...int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if err := s.deleteTx(ctx, tx, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) deleteTx(ctx context.Context, tx *sql.Tx, id int64) error {
	for _, stmt := range []string{
		s.sqlt.DeleteTextByRecord,
		s.sqlt.DeleteIntByRecord,
		s.sqlt.DeleteBoolByRecord,
		s.sqlt.DeleteTimeByRecord,
		s.sqlt.DeleteRecord,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete record %d: %w", id, err)
		}
	}
	return nil
}

func (s *SQLStore) insertTx(ctx context.Context, tx *sql.Tx, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %d: %w", rec.ID, err)
	}
	if _, err := tx.ExecContext(ctx, s.sqlt.InsertRecord, rec.ID, string(data)); err != nil {
		return fmt.Errorf("insert record %d: %w", rec.ID, err)
	}

	for field, v := range rec.Strings {
		if _, err := tx.ExecContext(ctx, s.sqlt.InsertText, rec.ID, field, v); err != nil {
			return fmt.Errorf("insert %s: %w", field, err)
		}
	}
	for field, vs := range rec.Sets {
		seen := make(map[string]bool, len(vs))
		for _, v := range vs {
			if seen[v] {
				continue
			}
			seen[v] = true
			if _, err := tx.ExecContext(ctx, s.sqlt.InsertText, rec.ID, field, v); err != nil {
				return fmt.Errorf("insert %s: %w", field, err)
			}
		}
	}
	for field, v := range rec.Ints {
		if _, err := tx.ExecContext(ctx, s.sqlt.InsertInt, rec.ID, field, v); err != nil {
			return fmt.Errorf("insert %s: %w", field, err)
		}
	}
	for field, v := range rec.Bools {
		b := int64(0)
		if v {
			b = 1
		}
		if _, err := tx.ExecContext(ctx, s.sqlt.InsertBool, rec.ID, field, b); err != nil {
			return fmt.Errorf("insert %s: %w", field, err)
		}
	}
	for field, v := range rec.Times {
		if _, err := tx.ExecContext(ctx, s.sqlt.InsertTime, rec.ID, field, planner.EpochMS(v)); err != nil {
			return fmt.Errorf("insert %s: %w", field, err)
		}
	}
	return nil
}

// Fetch loads stored records by id.
func (s *SQLStore) Fetch(ctx context.Context, ids []int64) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	b := sqlbuilder.New(s.adapter.PlaceholderStyle())
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(s.sqlt.SelectRecords, sqlbuilder.List(b, ids)), b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]Record, len(ids))
	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", id, err)
		}
		byID[id] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}
