package cliopt

import (
	"flag"

	"github.com/nonibytes/unitsearch/internal/config"
)

// GlobalOptions are parsed once at the CLI root and passed to subcommands.
// Flags left at their zero value fall back to the config file.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command router and per-command code.
type GlobalOptions struct {
	ConfigPath string

	Kind string

	Backend        string
	SQLitePath     string
	SQLiteDriver   string
	PostgresDSN    string
	PostgresSchema string
	Timezone       string

	Format   string
	LogLevel string
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Kind:   "units",
		Format: "pretty",
	}
}

func BindGlobalFlags(fs *flag.FlagSet, g *GlobalOptions) {
	fs.StringVar(&g.ConfigPath, "config", g.ConfigPath, "config file (.json with comments, or .yaml)")

	fs.StringVar(&g.Kind, "kind", g.Kind, "record kind: units|users")
	fs.StringVar(&g.Kind, "k", g.Kind, "record kind: units|users")

	fs.StringVar(&g.Backend, "backend", g.Backend, "backend: memory|sqlite|postgres")
	fs.StringVar(&g.SQLitePath, "sqlite-path", g.SQLitePath, "sqlite directory or explicit .db file path")
	fs.StringVar(&g.SQLiteDriver, "sqlite-driver", g.SQLiteDriver, "database/sql driver name for sqlite")
	fs.StringVar(&g.PostgresDSN, "pg-dsn", g.PostgresDSN, "postgres DSN")
	fs.StringVar(&g.PostgresSchema, "pg-schema", g.PostgresSchema, "postgres schema name")
	fs.StringVar(&g.Timezone, "tz", g.Timezone, "timezone for dates in queries")

	fs.StringVar(&g.Format, "format", g.Format, "output: pretty|ids|json")
	fs.StringVar(&g.LogLevel, "log-level", g.LogLevel, "log level: debug|info|warn|error")
}

// Config loads the config file, if any, and applies flag overrides.
func (g GlobalOptions) Config() (config.Config, error) {
	cfg := config.Default()
	if g.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(g.ConfigPath); err != nil {
			return cfg, err
		}
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Backend, g.Backend)
	override(&cfg.SQLite.Path, g.SQLitePath)
	override(&cfg.SQLite.Driver, g.SQLiteDriver)
	override(&cfg.Postgres.DSN, g.PostgresDSN)
	override(&cfg.Postgres.Schema, g.PostgresSchema)
	override(&cfg.Search.Timezone, g.Timezone)
	override(&cfg.Log.Level, g.LogLevel)
	return cfg, cfg.Validate()
}
