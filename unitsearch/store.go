package unitsearch

import (
	"context"
	"fmt"

	"github.com/nonibytes/unitsearch/unitsearch/storage"
	"github.com/nonibytes/unitsearch/unitsearch/storage/memory"
	"github.com/nonibytes/unitsearch/unitsearch/storage/postgres"
	"github.com/nonibytes/unitsearch/unitsearch/storage/sqlite"
)

// StoreConfig selects and locates a record store
type StoreConfig struct {
	Backend storage.Backend

	SQLitePath   string
	SQLiteDriver string

	PostgresDSN    string
	PostgresSchema string
}

// OpenStore opens the store for one record kind.
func OpenStore(ctx context.Context, cfg StoreConfig, kind string) (storage.RecordStore, error) {
	switch cfg.Backend {
	case storage.BackendMemory, "":
		return memory.New(), nil

	case storage.BackendSQLite:
		if cfg.SQLitePath == "" {
			return nil, SchemaError("sqlite path is required")
		}
		adapter := sqlite.New(cfg.SQLitePath)
		if cfg.SQLiteDriver != "" {
			adapter = sqlite.NewWithDriver(cfg.SQLitePath, cfg.SQLiteDriver)
		}
		s, err := storage.OpenSQL(ctx, adapter, kind)
		if err != nil {
			return nil, Wrap(ErrExecution, "open sqlite store", err)
		}
		return s, nil

	case storage.BackendPostgres:
		if cfg.PostgresDSN == "" {
			return nil, SchemaError("postgres dsn is required")
		}
		schema := cfg.PostgresSchema
		if schema == "" {
			schema = "unitsearch"
		}
		s, err := storage.OpenSQL(ctx, postgres.New(cfg.PostgresDSN, schema), kind)
		if err != nil {
			return nil, Wrap(ErrExecution, "open postgres store", err)
		}
		return s, nil
	}
	return nil, SchemaError(fmt.Sprintf("unknown backend %q", cfg.Backend))
}
