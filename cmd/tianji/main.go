package main

import (
	"os"

	"github.com/tianji-quant/tianji/cmd/tianji/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
