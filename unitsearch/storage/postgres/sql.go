package postgres

import (
	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

func templates(t planner.Tables) storage.SQL {
	return storage.SQL{
		GetMeta:            "SELECT value FROM meta WHERE key = $1",
		SetMeta:            "INSERT INTO meta(key,value) VALUES($1,$2) ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value",
		InsertRecord:       "INSERT INTO " + t.Records + "(id, data_json) VALUES($1, $2::jsonb)",
		DeleteRecord:       "DELETE FROM " + t.Records + " WHERE id = $1",
		DeleteTextByRecord: "DELETE FROM " + t.Text + " WHERE record_id = $1",
		DeleteIntByRecord:  "DELETE FROM " + t.Int + " WHERE record_id = $1",
		DeleteBoolByRecord: "DELETE FROM " + t.Bool + " WHERE record_id = $1",
		DeleteTimeByRecord: "DELETE FROM " + t.Time + " WHERE record_id = $1",
		InsertText:         "INSERT INTO " + t.Text + "(record_id, field, value) VALUES($1, $2, $3)",
		InsertInt:          "INSERT INTO " + t.Int + "(record_id, field, value) VALUES($1, $2, $3)",
		InsertBool:         "INSERT INTO " + t.Bool + "(record_id, field, value) VALUES($1, $2, $3)",
		InsertTime:         "INSERT INTO " + t.Time + "(record_id, field, value) VALUES($1, $2, $3)",
		SelectRecords:      "SELECT id, data_json::text FROM " + t.Records + " WHERE id IN (%s)",
	}
}
