package main

import (
	"os"

	"github.com/hireloop-dev/hireloop/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
