// Package config loads unitsearch service configuration.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/nonibytes/unitsearch/unitsearch"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

// Config is the complete service configuration.
type Config struct {
	Backend  string         `json:"backend" yaml:"backend"`
	SQLite   SQLiteConfig   `json:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `json:"postgres" yaml:"postgres"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Search   SearchConfig   `json:"search" yaml:"search"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

type SQLiteConfig struct {
	// Path is a directory holding one database per record kind, or an
	// explicit .db file shared by both kinds.
	Path   string `json:"path" yaml:"path"`
	Driver string `json:"driver" yaml:"driver"`
}

type PostgresConfig struct {
	DSN    string `json:"dsn" yaml:"dsn"`
	Schema string `json:"schema" yaml:"schema"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
	// RateLimit is requests per second across all clients. Zero disables
	// limiting.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`
	Burst     int     `json:"burst" yaml:"burst"`
}

type SearchConfig struct {
	DefaultLimit int    `json:"default_limit" yaml:"default_limit"`
	MaxLimit     int    `json:"max_limit" yaml:"max_limit"`
	MaxDepth     int    `json:"max_depth" yaml:"max_depth"`
	MaxTerms     int    `json:"max_terms" yaml:"max_terms"`
	Timezone     string `json:"timezone" yaml:"timezone"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Backend: string(storage.BackendMemory),
		SQLite:  SQLiteConfig{Path: "."},
		Postgres: PostgresConfig{
			Schema: "unitsearch",
		},
		Server: ServerConfig{Addr: ":8080", Burst: 20},
		Search: SearchConfig{
			DefaultLimit: unitsearch.DefaultLimit,
			MaxLimit:     unitsearch.DefaultMaxLimit,
			MaxDepth:     unitsearch.DefaultMaxDepth,
			MaxTerms:     unitsearch.DefaultMaxTerms,
			Timezone:     "UTC",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file over the defaults. Files ending in
// .yaml or .yml are YAML; anything else is JSON with comments and
// trailing commas allowed.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := Parse(data, filepath.Ext(path), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data into cfg according to the file extension ext.
func Parse(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		std, err := hujson.Standardize(data)
		if err != nil {
			return err
		}
		return json.Unmarshal(std, cfg)
	}
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	switch storage.Backend(c.Backend) {
	case storage.BackendMemory, storage.BackendSQLite:
	case storage.BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit && c.Search.MaxLimit > 0 {
		return fmt.Errorf("search.default_limit %d exceeds search.max_limit %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	return nil
}

// Location resolves search.timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Search.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Search.Timezone)
	if err != nil {
		return nil, fmt.Errorf("search.timezone: %w", err)
	}
	return loc, nil
}

// StoreConfig returns the store settings for one record kind.
func (c Config) StoreConfig(kind string) unitsearch.StoreConfig {
	return unitsearch.StoreConfig{
		Backend:        storage.Backend(c.Backend),
		SQLitePath:     SQLitePathFor(c.SQLite.Path, kind),
		SQLiteDriver:   c.SQLite.Driver,
		PostgresDSN:    c.Postgres.DSN,
		PostgresSchema: c.Postgres.Schema,
	}
}

// SQLitePathFor maps a configured path to the database file of kind. An
// explicit .db file or :memory: is used as is.
func SQLitePathFor(path, kind string) string {
	if path == "" {
		path = "."
	}
	if path == ":memory:" || strings.HasSuffix(path, ".db") {
		return path
	}
	return filepath.Join(path, kind+".db")
}

// EngineOptions returns the engine options implied by the search
// section.
func (c Config) EngineOptions(logger *slog.Logger) (unitsearch.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return unitsearch.Options{}, err
	}
	opts := unitsearch.DefaultOptions()
	opts.Location = loc
	opts.Logger = logger
	if c.Search.DefaultLimit > 0 {
		opts.DefaultLimit = c.Search.DefaultLimit
	}
	if c.Search.MaxLimit > 0 {
		opts.MaxLimit = c.Search.MaxLimit
	}
	if c.Search.MaxDepth > 0 {
		opts.MaxDepth = c.Search.MaxDepth
	}
	if c.Search.MaxTerms > 0 {
		opts.MaxTerms = c.Search.MaxTerms
	}
	return opts, nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}
