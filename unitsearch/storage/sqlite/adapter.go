package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
	"github.com/nonibytes/unitsearch/unitsearch/storage/sqlbuilder"
)

// DefaultDriver is the pure-Go driver registered by modernc.org/sqlite.
const DefaultDriver = "sqlite"

// MattnDriver is the cgo driver with regexp and casefold registered on
// every connection. It exists only in cgo builds.
const MattnDriver = "sqlite3_unitsearch"

type Adapter struct {
	Path       string
	DriverName string
}

func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DefaultDriver}
}

func NewWithDriver(path, driver string) *Adapter {
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle {
	return sqlbuilder.PlaceholderQuestion
}

func (a *Adapter) Dialect() planner.Dialect { return Dialect{} }

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	dsn := a.Path
	if !strings.Contains(dsn, "?") {
		dsn = dsn + "?_busy_timeout=5000&_foreign_keys=on"
	} else {
		dsn = dsn + "&_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := sql.Open(a.DriverName, dsn)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(a.Path, ":memory:") || strings.Contains(a.Path, "mode=memory") {
		// every pooled connection would get its own database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) SQL(tables planner.Tables) storage.SQL {
	return templates(tables)
}

func (a *Adapter) SearchTxOptions() *sql.TxOptions { return nil }

func (a *Adapter) CreateSchema(ctx context.Context, db *sql.DB, tables planner.Tables) error {
	if _, err := db.ExecContext(ctx, ddl(tables)); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")
	return nil
}

// Dialect renders string operations with the casefold and regexp
// functions registered on every connection.
type Dialect struct{}

func (Dialect) Fold(expr string) string { return "casefold(" + expr + ")" }

func (Dialect) Contains(expr, needle string) string {
	return fmt.Sprintf("instr(casefold(%s), casefold(%s)) > 0", expr, needle)
}

func (Dialect) Regex(expr, pattern string) string { return expr + " REGEXP " + pattern }
