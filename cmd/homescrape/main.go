// Package main is the entry point for the homescrape CLI.
package main

import (
	"os"

	"github.com/jmylchreest/homescrape/cmd/homescrape/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
