package commands

import (
	"flag"
	"fmt"
	"os"

	"github.com/nonibytes/unitsearch/internal/cliopt"
	"github.com/nonibytes/unitsearch/internal/cliutil"
)

func RunStats(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var field, where string
	fs.StringVar(&field, "field", "", "field")
	fs.StringVar(&where, "where", "", "where")
	fs.StringVar(&where, "w", "", "where")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if field == "" {
		fmt.Fprintln(os.Stderr, "missing --field")
		return 2
	}

	s, code := openSession(g)
	if s == nil {
		return code
	}
	defer s.Close()

	st, err := s.engine.Stats(s.ctx, where, field)
	if err != nil {
		cliutil.PrintError(os.Stderr, where, err)
		return 1
	}
	if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
		cliutil.PrintJSON(os.Stdout, st)
		return 0
	}
	fmt.Fprintf(os.Stdout, "Statistics for field '%s':\n", st.Field)
	fmt.Fprintf(os.Stdout, "  Count: %d\n", st.Count)
	if st.Min != nil {
		fmt.Fprintf(os.Stdout, "  Min: %.2f\n", *st.Min)
	}
	if st.Max != nil {
		fmt.Fprintf(os.Stdout, "  Max: %.2f\n", *st.Max)
	}
	if st.Avg != nil {
		fmt.Fprintf(os.Stdout, "  Avg: %.2f\n", *st.Avg)
	}
	if st.Median != nil {
		fmt.Fprintf(os.Stdout, "  Median: %.2f\n", *st.Median)
	}
	return 0
}
