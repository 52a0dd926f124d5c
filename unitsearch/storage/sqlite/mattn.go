//go:build cgo

package sqlite

import (
	"database/sql"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/nonibytes/unitsearch/unitsearch/planner"
)

func init() {
	sql.Register(MattnDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("regexp", matchRegexp, true); err != nil {
				return err
			}
			return conn.RegisterFunc("casefold", planner.Fold, true)
		},
	})
}
