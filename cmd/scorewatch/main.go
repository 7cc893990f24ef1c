// scorewatch serves a live dashboard over a directory of spreadsheet result files.
package main

import (
	"os"

	"github.com/scorewatch/scorewatch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
