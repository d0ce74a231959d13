package main

import (
	"os"

	"github.com/kwhlab/evdemand/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
