package postgres

import (
	"strings"

	"github.com/nonibytes/unitsearch/unitsearch/planner"
)

const ddlTemplate = `
CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT
);

CREATE TABLE IF NOT EXISTS {records} (
  id        BIGINT PRIMARY KEY,
  data_json JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS {text} (
  record_id BIGINT NOT NULL,
  field     TEXT   NOT NULL,
  value     TEXT   NOT NULL,
  PRIMARY KEY (record_id, field, value)
);
CREATE INDEX IF NOT EXISTS idx_{text}_lookup ON {text}(field, value);

CREATE TABLE IF NOT EXISTS {int} (
  record_id BIGINT NOT NULL,
  field     TEXT   NOT NULL,
  value     BIGINT NOT NULL,
  PRIMARY KEY (record_id, field)
);
CREATE INDEX IF NOT EXISTS idx_{int}_lookup ON {int}(field, value);

CREATE TABLE IF NOT EXISTS {bool} (
  record_id BIGINT   NOT NULL,
  field     TEXT     NOT NULL,
  value     SMALLINT NOT NULL,
  PRIMARY KEY (record_id, field)
);
CREATE INDEX IF NOT EXISTS idx_{bool}_lookup ON {bool}(field, value);

CREATE TABLE IF NOT EXISTS {time} (
  record_id BIGINT NOT NULL,
  field     TEXT   NOT NULL,
  value     BIGINT NOT NULL,
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
