package main

import (
	"os"

	"agentlink/cmd/agentlink/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
