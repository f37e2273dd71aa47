package main

import (
	"os"

	"github.com/conneroisu/cargo-docserver/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
