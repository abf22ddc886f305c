package main

import (
	"os"

	"github.com/ngalaiko/ledger-desktop/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
