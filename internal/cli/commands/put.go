package commands

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nonibytes/unitsearch/internal/cliopt"
	"github.com/nonibytes/unitsearch/internal/cliutil"
	"github.com/nonibytes/unitsearch/unitsearch"
)

func RunPut(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var id int64
	var importPath string
	var jsonStdin bool
	var batchSize int
	var sets multiString
	fs.Int64Var(&id, "id", 0, "record id (single record mode)")
	fs.BoolVar(&jsonStdin, "json", false, "read JSON lines from stdin")
	fs.StringVar(&importPath, "import", "", "import JSONL file")
	fs.IntVar(&batchSize, "batch", 500, "records per store write")
	fs.Var(&sets, "set", "set k=v (repeatable)")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	// single record mode
	if id != 0 {
		doc := map[string]any{"id": id}
		for _, kv := range sets {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				doc[kv] = true
				continue
			}
			doc[k] = setValue(v)
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		s, code := openSession(g)
		if s == nil {
			return code
		}
		defer s.Close()

		b := unitsearch.NewBatch()
		if err := b.PutJSON(raw); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if _, err := s.engine.Apply(s.ctx, b); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Fprintln(os.Stdout, "put")
		return 0
	}

	// import/jsonl mode
	var r io.Reader
	if importPath != "" {
		f, err := os.Open(importPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer f.Close()
		r = f
	} else if jsonStdin {
		r = os.Stdin
	} else {
		fmt.Fprintln(os.Stderr, "provide --id or --json or --import")
		return 2
	}

	s, code := openSession(g)
	if s == nil {
		return code
	}
	defer s.Close()

	records, err := cliutil.ReadRecords(s.ctx, r, s.engine.Registry())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := s.engine.Load(s.ctx, records, batchSize); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Fprintf(os.Stdout, "imported %s\n", cliutil.Count(len(records)))
	return 0
}

// setValue types a --set value: integers and booleans become JSON
// numbers and booleans, comma lists become arrays.
func setValue(v string) any {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	if strings.Contains(v, ",") {
		return strings.Split(v, ",")
	}
	return v
}
