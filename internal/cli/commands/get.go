package commands

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nonibytes/unitsearch/internal/cliopt"
	"github.com/nonibytes/unitsearch/internal/cliutil"
)

func RunGet(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: get <id>...")
		return 2
	}
	ids := make([]int64, 0, fs.NArg())
	for _, arg := range fs.Args() {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid id %q\n", arg)
			return 2
		}
		ids = append(ids, id)
	}

	s, code := openSession(g)
	if s == nil {
		return code
	}
	defer s.Close()

	recs, err := s.engine.Fetch(s.ctx, ids)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
		cliutil.PrintJSON(os.Stdout, recs)
		return 0
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stderr, "no records found")
		return 1
	}
	now := time.Now()
	for _, rec := range recs {
		cliutil.PrintRecord(os.Stdout, s.engine.Registry(), rec, now)
	}
	return 0
}
