package main

import (
	"os"

	"github.com/patchdeck/patchdeck/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
