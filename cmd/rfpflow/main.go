package main

import (
	"os"

	"github.com/felixgeelhaar/rfpflow/internal/infrastructure/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
