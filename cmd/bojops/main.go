// Package main is the entry point for bojops, which tracks the Bank of
// Japan's open-market operations.
//
// Subcommands:
//   - refresh: fetch the lookback window, store it and render the report
//   - report:  render the report from the stored operations only
//   - query:   print a series table for one or more instruments
//   - serve:   run the HTTP API and the scheduler until SIGINT/SIGTERM
//
// Configuration is read from the environment (and an optional .env file);
// see internal/config.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&refreshCmd{}, "data")
	commander.Register(&reportCmd{}, "data")
	commander.Register(&queryCmd{}, "data")
	commander.Register(&serveCmd{}, "server")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
