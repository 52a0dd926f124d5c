package commands

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/nonibytes/unitsearch/internal/cliopt"
	"github.com/nonibytes/unitsearch/unitsearch"
)

func RunDelete(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: delete <id>...")
		return 2
	}

	b := unitsearch.NewBatch()
	for _, arg := range fs.Args() {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid id %q\n", arg)
			return 2
		}
		b.Delete(id)
	}

	s, code := openSession(g)
	if s == nil {
		return code
	}
	defer s.Close()

	n, err := s.engine.Apply(s.ctx, b)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Fprintf(os.Stdout, "deleted %d\n", n)
	return 0
}
