package main

import (
	"os"

	"github.com/skillbench/skillbench/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
