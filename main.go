package main

import (
	"os"

	"github.com/propdoc-io/propdoc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
