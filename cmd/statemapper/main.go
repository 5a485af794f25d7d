// Package main provides the statemapper CLI for normalizing state
// COVID school data and joining NCES reference tables.
package main

import (
	"os"

	"github.com/shashir/covid-school-data/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
