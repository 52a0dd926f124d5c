package cli

import (
	"fmt"
	"io"
)

func PrintRootHelp(w io.Writer) {
	fmt.Fprintln(w, `unitsearch - structured search over translation units and users

USAGE
  unitsearch [global flags] <command> [args]

GLOBAL FLAGS
  --config <file.json|file.yaml>
  --kind, -k units|users
  --backend memory|sqlite|postgres
  --sqlite-path <dir|file.db>
  --sqlite-driver <driver>
  --pg-dsn <dsn>
  --pg-schema <name>
  --tz <zone>
  --format pretty|ids|json
  --log-level debug|info|warn|error

COMMANDS
  search -w <query> [--sort f,-g] [--limit N] [--offset N] [--token T]
  explain -w <query> [--sort f,-g]
  put --import <file.jsonl> | --json | --id N --set k=v...
  get <id>...
  delete <id>...
  discover fields
  discover values --field <f> [-w <query>] [--top N]
  stats --field <f> [-w <query>]
  serve [--addr host:port] [--load units=file.jsonl]

QUERY EXAMPLES
  state:>=translated AND changed:>="2 weeks ago"
  source:r"^Hello" OR NOT has:comment
  position:[10 to 100] component:core`)
}
