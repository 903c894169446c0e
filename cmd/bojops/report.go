package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
)

type reportCmd struct{}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "render the report from the stored operations" }
func (*reportCmd) Usage() string {
	return `bojops report

  Renders the report over the default window without fetching anything.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	_, container, _, err := bootstrap(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	report, err := container.Service.Report(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	printReport(report)
	return subcommands.ExitSuccess
}
