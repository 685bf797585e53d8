package main

import (
	"os"

	"github.com/gudapatin/sentalpha/cmd/sentalpha/commands"
)

// main is the entry point for the sentalpha CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
