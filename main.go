// Package main provides the entry point for the relaymux application.
package main

import (
	"os"

	"github.com/ethpandaops/relaymux/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
