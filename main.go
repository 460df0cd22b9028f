package main

import (
	"os"

	"github.com/rec-operation/lem-api/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
