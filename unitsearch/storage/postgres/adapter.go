package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
	"github.com/nonibytes/unitsearch/unitsearch/storage/sqlbuilder"
)

type Adapter struct {
	DSN    string
	Schema string // used as dedicated schema via search_path

	// ConnectTimeout bounds the retries while the server comes up.
	ConnectTimeout time.Duration
}

func New(dsn, schema string) *Adapter {
	return &Adapter{DSN: dsn, Schema: schema, ConnectTimeout: 30 * time.Second}
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendPostgres }

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle { return sqlbuilder.PlaceholderDollar }

func (a *Adapter) Dialect() planner.Dialect { return Dialect{} }

func (a *Adapter) Close() error { return nil }

func (a *Adapter) SQL(tables planner.Tables) storage.SQL { return templates(tables) }

// SearchTxOptions pins count and page queries to one snapshot.
func (a *Adapter) SearchTxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdent(ident string) string {
	// ident is validated to contain no quotes; safe to wrap
	return `"` + ident + `"`
}

func (a *Adapter) ensureSchema(ctx context.Context, db *sql.DB) error {
	if a.Schema == "" || !schemaNameRe.MatchString(a.Schema) {
		return fmt.Errorf("invalid postgres schema name %q (must match %s)", a.Schema, schemaNameRe.String())
	}
	_, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(a.Schema))
	return err
}

// Connect opens the database, retrying the first ping with exponential
// backoff. Query failures later on are never retried here.
func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	if a.Schema == "" || !schemaNameRe.MatchString(a.Schema) {
		return nil, fmt.Errorf("invalid postgres schema name %q (must match %s)", a.Schema, schemaNameRe.String())
	}

	// 1) Connect without search_path to ensure schema exists
	cfg0, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	db0 := stdlib.OpenDB(*cfg0)
	if err := a.ping(ctx, db0); err != nil {
		_ = db0.Close()
		return nil, err
	}
	if err := a.ensureSchema(ctx, db0); err != nil {
		_ = db0.Close()
		return nil, err
	}
	_ = db0.Close()

	// 2) Connect with search_path pinned to the schema
	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	cfg.RuntimeParams["search_path"] = fmt.Sprintf("%s,public", quoteIdent(a.Schema))

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) ping(ctx context.Context, db *sql.DB) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = a.ConnectTimeout
	return backoff.Retry(func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return db.PingContext(ctx)
	}, backoff.WithContext(bo, ctx))
}

func (a *Adapter) CreateSchema(ctx context.Context, db *sql.DB, tables planner.Tables) error {
	if _, err := db.ExecContext(ctx, ddl(tables)); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Dialect renders string operations with built-in functions. Case
// folding is lower(), which maps runes one to one: unlike the memory and
// SQLite stores, "straße" does not match "STRASSE" here.
type Dialect struct{}

func (Dialect) Fold(expr string) string { return "lower(" + expr + ")" }

func (Dialect) Contains(expr, needle string) string {
	return fmt.Sprintf("strpos(lower(%s), lower(%s)) > 0", expr, needle)
}

func (Dialect) Regex(expr, pattern string) string { return expr + " ~ " + pattern }
