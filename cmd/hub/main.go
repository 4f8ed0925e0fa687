package main

import (
	"os"

	_ "go.uber.org/automaxprocs"

	"productivity-hub/cmd/hub/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
