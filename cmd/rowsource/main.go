// Command rowsource queries CSV, Parquet and SQLite data sources.
package main

import (
	"os"

	"github.com/roach88/rowsource/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
