package main

import (
	"os"

	"github.com/wonny/factorpool/cmd/factor/commands"
)

// main is the entry point for the factor pool CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/factor [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
