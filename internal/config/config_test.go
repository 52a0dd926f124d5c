package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadHuJSON(t *testing.T) {
	path := writeFile(t, "unitsearch.json", `{
		// local development
		"backend": "sqlite",
		"sqlite": {"path": "/var/lib/unitsearch"},
		"search": {"max_depth": 8, "timezone": "Europe/Prague",},
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, 8, cfg.Search.MaxDepth)
	// untouched keys keep their defaults
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 256, cfg.Search.MaxTerms)

	sc := cfg.StoreConfig("units")
	assert.Equal(t, storage.BackendSQLite, sc.Backend)
	assert.Equal(t, "/var/lib/unitsearch/units.db", sc.SQLitePath)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Prague", loc.String())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "unitsearch.yaml", `
backend: postgres
postgres:
  dsn: postgres://search@localhost/weblate
server:
  addr: 127.0.0.1:9000
  rate_limit: 50
  burst: 100
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Backend)
	assert.Equal(t, "unitsearch", cfg.Postgres.Schema)
	assert.Equal(t, 50.0, cfg.Server.RateLimit)
	assert.Equal(t, 100, cfg.Server.Burst)

	level, err := ParseLevel(cfg.Log.Level)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown backend":  `{"backend": "redis"}`,
		"postgres no dsn":  `{"backend": "postgres"}`,
		"bad timezone":     `{"search": {"timezone": "Mars/Olympus"}}`,
		"bad level":        `{"log": {"level": "loud"}}`,
		"limit over max":   `{"search": {"default_limit": 500, "max_limit": 100}}`,
		"negative rate":    `{"server": {"rate_limit": -1}}`,
		"malformed hujson": `{"backend": }`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.json", body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestSQLitePathFor(t *testing.T) {
	assert.Equal(t, "units.db", SQLitePathFor("", "units"))
	assert.Equal(t, filepath.Join("data", "users.db"), SQLitePathFor("data", "users"))
	assert.Equal(t, "/tmp/all.db", SQLitePathFor("/tmp/all.db", "users"))
	assert.Equal(t, ":memory:", SQLitePathFor(":memory:", "units"))
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	cfg.Search.DefaultLimit = 10
	cfg.Search.MaxTerms = 0

	opts, err := cfg.EngineOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, 10, opts.DefaultLimit)
	assert.Equal(t, 256, opts.MaxTerms)
	assert.Equal(t, "UTC", opts.Location.String())
}
