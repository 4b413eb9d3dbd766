package main

import (
	"os"

	"till-bot/cmd/tillbot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
