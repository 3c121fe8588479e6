package main

import (
	"os"

	"github.com/wonny/stockrate/backend/cmd/rating/commands"
)

// main is the entry point for the rating CLI
// ⭐ Unified CLI entry point: go run ./cmd/rating [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
