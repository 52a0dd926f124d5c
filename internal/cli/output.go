package cli

import (
	"fmt"
	"io"
	"runtime/debug"
)

// PrintVersion writes the module version recorded at build time.
func PrintVersion(w io.Writer) {
	version := "(devel)"
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		version = info.Main.Version
	}
	fmt.Fprintf(w, "unitsearch %s\n", version)
}
