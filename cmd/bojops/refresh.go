package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/work"
)

type refreshCmd struct {
	noReport bool
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "fetch recent operations, store them and render the report" }
func (*refreshCmd) Usage() string {
	return `bojops refresh

  Fetches the monthly releases and daily results of the lookback window,
  merges them into the stored operations, saves the store and renders the
  report. A run that meets an unrecognized publication aborts without
  touching the store.
`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {}

func (c *refreshCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	_, container, log, err := bootstrap(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	res, err := container.Service.Refresh(ctx, "cli")
	if err != nil {
		if domain.IsFatal(err) {
			log.Error().Err(err).Msg("Refresh aborted: publication not recognized, update the classification rules")
		}
		fail("%v", err)
		if res == nil {
			return subcommands.ExitFailure
		}
	}

	fmt.Printf("Run %s: %d fetched, %d replaced, %d skipped, %d stored\n",
		res.RunID, res.Fetched, res.Replaced, res.Skipped, res.Operations)
	if !res.Saved {
		fail("store was not saved")
		return subcommands.ExitFailure
	}
	printReport(res.Report)
	if err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printReport(report *work.ReportResult) {
	if report == nil {
		return
	}
	fmt.Printf("Report %s: %d pages, %s to %s\n", report.Path, report.Pages, report.Start, report.End)
	if report.Published != "" {
		fmt.Printf("Published to %s\n", report.Published)
	}
}
