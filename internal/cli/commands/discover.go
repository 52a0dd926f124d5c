package commands

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/nonibytes/unitsearch/internal/cliopt"
	"github.com/nonibytes/unitsearch/internal/cliutil"
	"github.com/nonibytes/unitsearch/unitsearch"
	"github.com/nonibytes/unitsearch/unitsearch/fields"
	"github.com/nonibytes/unitsearch/unitsearch/ops"
)

func RunDiscover(g cliopt.GlobalOptions, argv []string) int {
	if len(argv) == 0 {
		fmt.Fprintln(os.Stderr, "discover requires a subcommand: fields|values")
		return 2
	}
	sub := argv[0]
	args := argv[1:]
	switch sub {
	case "fields":
		return runDiscoverFields(g, args)
	case "values":
		return runDiscoverValues(g, args)
	default:
		fmt.Fprintln(os.Stderr, "unknown discover subcommand")
		return 2
	}
}

// runDiscoverFields needs no store; it describes the registry.
func runDiscoverFields(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("discover fields", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	reg, ok := fields.ByName(g.Kind)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown record kind %q\n", g.Kind)
		return 2
	}
	rows := ops.DiscoverFields(reg)
	if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
		cliutil.PrintJSON(os.Stdout, rows)
		return 0
	}
	for _, f := range rows {
		flags := []string{f.Type}
		if f.Multi {
			flags = append(flags, "multi")
		}
		if f.Optional {
			flags = append(flags, "optional")
		}
		if f.Sortable {
			flags = append(flags, "sortable")
		}
		if f.Default {
			flags = append(flags, "free-text")
		}
		fmt.Fprintf(os.Stdout, "%s (%s)\n", f.Field, strings.Join(flags, ", "))
		fmt.Fprintf(os.Stdout, "  operators: %s\n", strings.Join(f.Operators, " "))
		if len(f.Values) > 0 {
			fmt.Fprintf(os.Stdout, "  values: %s\n", strings.Join(f.Values, ", "))
		}
	}
	return 0
}

func runDiscoverValues(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("discover values", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var field, where string
	var top int
	fs.StringVar(&field, "field", "", "field")
	fs.StringVar(&where, "where", "", "where")
	fs.StringVar(&where, "w", "", "where")
	fs.IntVar(&top, "top", unitsearch.DefaultFacetLimit, "top")
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

	vals, err := s.engine.Facets(s.ctx, where, field, top)
	if err != nil {
		cliutil.PrintError(os.Stderr, where, err)
		return 1
	}
	if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
		cliutil.PrintJSON(os.Stdout, vals)
		return 0
	}
	fmt.Fprintf(os.Stdout, "Top values for field '%s':\n", field)
	for _, v := range vals {
		fmt.Fprintf(os.Stdout, "  %s: %s\n", v.Value, cliutil.Count(v.Count))
	}
	return 0
}
