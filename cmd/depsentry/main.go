package main

import (
	"os"

	"depsentry/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
