package main

import (
	"os"

	"github.com/nordwatt/energydwh/cmd/energydwh/commands"
)

// main is the entry point for the energydwh CLI.
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
