package main

import (
	"os"

	"github.com/corpledger-dev/corpledger/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
