package cliutil

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nonibytes/unitsearch/unitsearch"
)

// PrintError writes err to w. Errors that point into the query text are
// followed by the query with the offending span underlined.
func PrintError(w io.Writer, queryText string, err error) {
	fmt.Fprintln(w, err)

	var ue *unitsearch.Error
	if !errors.As(err, &ue) || ue.Span == nil || queryText == "" {
		return
	}
	start, end := ue.Span.Start, ue.Span.End
	if start < 0 || start > len(queryText) {
		return
	}
	if end > len(queryText) {
		end = len(queryText)
	}
	width := end - start
	if width < 1 {
		width = 1
	}
	fmt.Fprintf(w, "  %s\n  %s%s\n", queryText, strings.Repeat(" ", start), strings.Repeat("^", width))
}
