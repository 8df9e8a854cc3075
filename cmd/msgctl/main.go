package main

import (
	"os"

	"github.com/buildit-network/messenger-go/cmd/msgctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
