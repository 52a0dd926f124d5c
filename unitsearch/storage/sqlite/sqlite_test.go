package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/unitsearch/unitsearch/planner"
)

func TestMatchRegexp(t *testing.T) {
	ok, err := matchRegexp(`^item [2-5]$`, "item 3")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = matchRegexp(`^item [2-5]$`, "item 7")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = matchRegexp(`(unclosed`, "x")
	assert.ErrorContains(t, err, "invalid regex")
}

func TestRegisteredFunctions(t *testing.T) {
	ctx := context.Background()
	a := New(filepath.Join(t.TempDir(), "funcs.db"))
	db, err := a.Connect(ctx)
	require.NoError(t, err)
	defer db.Close()

	var matched int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT 'Hello World' REGEXP 'o W'`).Scan(&matched))
	assert.Equal(t, 1, matched)

	var folded string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT casefold('STRASSE Ünïcode')`).Scan(&folded))
	assert.Equal(t, planner.Fold("STRASSE Ünïcode"), folded)

	var pos int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT instr(casefold(?), casefold(?))`, "Translated String", "STRING").Scan(&pos))
	assert.Equal(t, 12, pos)

	err = db.QueryRowContext(ctx, `SELECT 'x' REGEXP '(unclosed'`).Scan(&matched)
	assert.Error(t, err)
}

func TestCreateSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	a := New(filepath.Join(t.TempDir(), "schema.db"))
	db, err := a.Connect(ctx)
	require.NoError(t, err)
	defer db.Close()

	tables := planner.TablesFor("units")
	require.NoError(t, a.CreateSchema(ctx, db, tables))
	require.NoError(t, a.CreateSchema(ctx, db, tables))

	var n int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name LIKE 'units_%'`).Scan(&n))
	assert.Equal(t, 5, n)
}
