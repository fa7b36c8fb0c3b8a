package main

import (
	"os"

	"rhystmorgan/fxTerm/internal/cli"
)

func main() {
	os.Exit(cli.NewRunner().Run(os.Args[1:]))
}
