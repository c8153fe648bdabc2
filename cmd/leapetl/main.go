// Package main provides the CLI for the LeapETL pipeline runner.
package main

import (
	"os"

	"github.com/leapstack-labs/leapetl/internal/cli"

	// Database adapters register themselves with the adapter registry.
	_ "github.com/leapstack-labs/leapetl/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapetl/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapetl/pkg/adapters/sqlite"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
