// Package main is the entry point for the thoughthub CLI.
package main

import (
	"os"

	"github.com/KafClaw/thoughthub/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
