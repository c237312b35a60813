package main

import (
	"os"

	"github.com/adaptive-cs/insights/cmd/insights/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
