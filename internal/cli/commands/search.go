package commands

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nonibytes/unitsearch/internal/cliopt"
	"github.com/nonibytes/unitsearch/internal/cliutil"
	"github.com/nonibytes/unitsearch/unitsearch"
)

func RunSearch(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var where, sort, token, now string
	var limit, offset int
	var records bool
	fs.StringVar(&where, "where", "", "query")
	fs.StringVar(&where, "w", "", "query")
	fs.StringVar(&sort, "sort", "", "sort: field[,-field...]")
	fs.IntVar(&limit, "limit", 0, "page size")
	fs.IntVar(&offset, "offset", 0, "page offset")
	fs.StringVar(&token, "token", "", "continue from a previous page")
	fs.StringVar(&now, "now", "", "resolve relative dates against this RFC 3339 instant")
	fs.BoolVar(&records, "records", true, "print stored records, not just ids")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if where == "" && fs.NArg() > 0 {
		where = fs.Arg(0)
	}

	req := unitsearch.SearchRequest{
		Query:       where,
		Sort:        sort,
		Offset:      offset,
		Limit:       limit,
		Token:       token,
		WithRecords: records,
	}
	if now != "" {
		t, err := time.Parse(time.RFC3339, now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --now: %v\n", err)
			return 2
		}
		req.Now = t
	}

	s, code := openSession(g)
	if s == nil {
		return code
	}
	defer s.Close()

	start := time.Now()
	res, err := s.engine.Search(s.ctx, req)
	if err != nil {
		cliutil.PrintError(os.Stderr, where, err)
		return 1
	}
	printSearch(g, s, res, time.Since(start))
	return 0
}

func printSearch(g cliopt.GlobalOptions, s *session, res *unitsearch.SearchResult, dur time.Duration) {
	switch cliutil.ParseOutputFormat(g.Format) {
	case cliutil.FormatJSON:
		cliutil.PrintJSON(os.Stdout, res)
	case cliutil.FormatIDs:
		for _, id := range res.IDs {
			fmt.Fprintln(os.Stdout, id)
		}
	default:
		fmt.Fprintf(os.Stdout, "Found %s records in %dms (showing %d from offset %d)\n",
			cliutil.Count(res.Total), dur.Milliseconds(), len(res.IDs), res.Offset)
		now := time.Now()
		if len(res.Records) > 0 {
			for _, rec := range res.Records {
				cliutil.PrintRecord(os.Stdout, s.engine.Registry(), rec, now)
			}
		} else {
			for _, id := range res.IDs {
				fmt.Fprintf(os.Stdout, "- %d\n", id)
			}
		}
		if res.NextToken != "" {
			fmt.Fprintf(os.Stdout, "\nnext: %s\n", res.NextToken)
		}
	}
}
