package main

import (
	"os"

	"github.com/ftilbury/aibot/cmd/aibot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
