package commands

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nonibytes/unitsearch/internal/cliopt"
	"github.com/nonibytes/unitsearch/internal/cliutil"
)

// RunExplain prints how a query parses and what it runs against the store.
func RunExplain(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("explain", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var where, sort string
	fs.StringVar(&where, "where", "", "query")
	fs.StringVar(&where, "w", "", "query")
	fs.StringVar(&sort, "sort", "", "sort: field[,-field...]")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if where == "" && fs.NArg() > 0 {
		where = fs.Arg(0)
	}

	s, code := openSession(g)
	if s == nil {
		return code
	}
	defer s.Close()

	ex, err := s.engine.Explain(where, sort, time.Time{})
	if err != nil {
		cliutil.PrintError(os.Stderr, where, err)
		return 1
	}
	if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
		cliutil.PrintJSON(os.Stdout, ex)
		return 0
	}
	fmt.Fprintf(os.Stdout, "Query:     %s\n", ex.AST)
	fmt.Fprintf(os.Stdout, "Predicate: %s\n", ex.Predicate)
	fmt.Fprintf(os.Stdout, "Order:     %v\n", ex.Order)
	if len(ex.Steps) > 0 {
		fmt.Fprintln(os.Stdout, "\nPlan:")
		for _, step := range ex.Steps {
			fmt.Fprintf(os.Stdout, "  %s\n", step)
		}
	}
	if ex.SQL != "" {
		fmt.Fprintf(os.Stdout, "\nSQL:\n%s\n", ex.SQL)
	}
	return 0
}
