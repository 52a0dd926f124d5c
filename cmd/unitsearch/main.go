package main

import (
	"os"

	"github.com/nonibytes/unitsearch/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
