package main

import (
	"os"
	_ "time/tzdata"

	"github.com/rustyeddy/propguard/cmd/propguard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
