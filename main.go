package main

import (
	"os"

	"github.com/Swapica/twap-indexer-svc/internal/cli"
)

func main() {
	if !cli.Run(os.Args) {
		os.Exit(1)
	}
}
