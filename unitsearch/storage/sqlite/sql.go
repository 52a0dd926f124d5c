package sqlite

import (
	"strings"

	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

const ddlTemplate = `
CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT
);

CREATE TABLE IF NOT EXISTS {records} (
  id        INTEGER PRIMARY KEY,
  data_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS {text} (
  record_id INTEGER NOT NULL,
  field     TEXT    NOT NULL,
  value     TEXT    NOT NULL,
  PRIMARY KEY (record_id, field, value)
);
CREATE INDEX IF NOT EXISTS idx_{text}_lookup ON {text}(field, value);

CREATE TABLE IF NOT EXISTS {int} (
  record_id INTEGER NOT NULL,
  field     TEXT    NOT NULL,
  value     INTEGER NOT NULL,
  PRIMARY KEY (record_id, field)
);
CREATE INDEX IF NOT EXISTS idx_{int}_lookup ON {int}(field, value);

CREATE TABLE IF NOT EXISTS {bool} (
  record_id INTEGER NOT NULL,
  field     TEXT    NOT NULL,
  value     INTEGER NOT NULL,
  PRIMARY KEY (record_id, field)
);
CREATE INDEX IF NOT EXISTS idx_{bool}_lookup ON {bool}(field, value);

CREATE TABLE IF NOT EXISTS {time} (
  record_id INTEGER NOT NULL,
  field     TEXT    NOT NULL,
  value     INTEGER NOT NULL,
  PRIMARY KEY (record_id, field)
);
CREATE INDEX IF NOT EXISTS idx_{time}_lookup ON {time}(field, value);
`

func ddl(t planner.Tables) string {
	return strings.NewReplacer(
		"{records}", t.Records,
		"{text}", t.Text,
		"{int}", t.Int,
		"{bool}", t.Bool,
		"{time}", t.Time,
	).Replace(ddlTemplate)
}

func templates(t planner.Tables) storage.SQL {
	return storage.SQL{
		GetMeta:            "SELECT value FROM meta WHERE key = ?1",
		SetMeta:            "INSERT INTO meta(key,value) VALUES(?1,?2) ON CONFLICT(key) DO UPDATE SET value=excluded.value",
		InsertRecord:       "INSERT INTO " + t.Records + "(id, data_json) VALUES(?1, ?2)",
		DeleteRecord:       "DELETE FROM " + t.Records + " WHERE id = ?1",
		DeleteTextByRecord: "DELETE FROM " + t.Text + " WHERE record_id = ?1",
		DeleteIntByRecord:  "DELETE FROM " + t.Int + " WHERE record_id = ?1",
		DeleteBoolByRecord: "DELETE FROM " + t.Bool + " WHERE record_id = ?1",
		DeleteTimeByRecord: "DELETE FROM " + t.Time + " WHERE record_id = ?1",
		InsertText:         "INSERT INTO " + t.Text + "(record_id, field, value) VALUES(?1, ?2, ?3)",
		InsertInt:          "INSERT INTO " + t.Int + "(record_id, field, value) VALUES(?1, ?2, ?3)",
		InsertBool:         "INSERT INTO " + t.Bool + "(record_id, field, value) VALUES(?1, ?2, ?3)",
		InsertTime:         "INSERT INTO " + t.Time + "(record_id, field, value) VALUES(?1, ?2, ?3)",
		SelectRecords:      "SELECT id, data_json FROM " + t.Records + " WHERE id IN (%s)",
	}
}
