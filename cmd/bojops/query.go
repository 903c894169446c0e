package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/modules/charts"
	"github.com/aristath/bojops/internal/modules/classifier"
)

// stringList is a repeatable string flag. Values may also be comma separated.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

type queryCmd struct {
	instruments stringList
	start       string
	end         string
	window      string
	byRate      bool
	monthly     bool
	raw         bool
}

func (*queryCmd) Name() string     { return "query" }
func (*queryCmd) Synopsis() string { return "print a series table for one or more instruments" }
func (*queryCmd) Usage() string {
	return `bojops query -i <instrument> [-i ...] [-start YYYY-MM-DD] [-end YYYY-MM-DD] [-range 1Y] [-rate] [-monthly] [-raw]

  Prints the stored values of the given instruments as a table. "All" adds
  the total of the JGB family. Days on which none of the instruments traded
  are left out.
`
}

func (c *queryCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.instruments, "i", "canonical instrument name, repeatable (e.g. \"JGBs: 5-10y\", CP, All)")
	f.StringVar(&c.start, "start", "", "first date (defaults to the first stored date)")
	f.StringVar(&c.end, "end", "", "last date (defaults to the last stored date)")
	f.StringVar(&c.window, "range", "", "window ending today: 1M, 3M, 6M, 1Y, 3Y")
	f.BoolVar(&c.byRate, "rate", false, "print rates instead of volumes")
	f.BoolVar(&c.monthly, "monthly", false, "collapse to calendar months")
	f.BoolVar(&c.raw, "raw", false, "print plain markdown")
}

func (c *queryCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if len(c.instruments) == 0 {
		fail("at least one -i instrument is required")
		return subcommands.ExitUsageError
	}
	for _, name := range c.instruments {
		if name != classifier.All && !classifier.IsCanonical(name) {
			fail("unknown instrument %q; known instruments:\n  %s", name, strings.Join(classifier.Canonical(), "\n  "))
			return subcommands.ExitUsageError
		}
	}

	_, container, _, err := bootstrap(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	collection := container.Service.Collection()
	first, ok := collection.First()
	if !ok {
		fail("no operations stored; run bojops refresh first")
		return subcommands.ExitFailure
	}
	last, _ := collection.Last()

	opts, err := c.options(first.Date(), last.Date(), domain.Today(time.Local))
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	series, err := container.Service.Charts().Series(opts)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}

	md := seriesMarkdown(series)
	if c.raw {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}
	printMarkdown(md)
	return subcommands.ExitSuccess
}

// options resolves the flags into a query over [first, last] by default.
func (c *queryCmd) options(first, last, today civil.Date) (charts.QueryOptions, error) {
	opts := charts.QueryOptions{
		Instruments: []string(c.instruments),
		Start:       first,
		End:         last,
		ByRate:      c.byRate,
		Monthly:     c.monthly,
	}
	if c.window != "" && c.window != "all" {
		from, ok := charts.ParseRange(c.window, today)
		if !ok {
			return opts, fmt.Errorf("unknown range %q", c.window)
		}
		opts.Start = from
	}
	if c.start != "" {
		d, err := domain.ParseDate(c.start)
		if err != nil {
			return opts, fmt.Errorf("invalid -start: %w", err)
		}
		opts.Start = d
	}
	if c.end != "" {
		d, err := domain.ParseDate(c.end)
		if err != nil {
			return opts, fmt.Errorf("invalid -end: %w", err)
		}
		opts.End = d
	}
	return opts, nil
}

// seriesMarkdown formats a series as a markdown table. Volumes are in
// billions of currency units, rates in percent.
func seriesMarkdown(s charts.Series) string {
	var b strings.Builder

	unit := "volume, bn"
	if s.ByRate {
		unit = "rate, %"
	}
	period := "Date"
	if s.Monthly {
		period = "Month"
	}
	fmt.Fprintf(&b, "## %s (%s)\n\n", strings.Join(s.Columns, ", "), unit)

	if len(s.Points) == 0 {
		b.WriteString("No operations in this window.\n")
		return b.String()
	}

	b.WriteString("| " + period)
	for _, col := range s.Columns {
		b.WriteString(" | " + col)
	}
	b.WriteString(" |\n|---")
	for range s.Columns {
		b.WriteString("|---:")
	}
	b.WriteString("|\n")

	valueFormat := "%.1f"
	if s.ByRate {
		valueFormat = "%.3f"
	}
	for _, p := range s.Points {
		label := p.Date.String()
		if s.Monthly {
			label = label[:7]
		}
		b.WriteString("| " + label)
		for _, v := range p.Values {
			b.WriteString(" | " + fmt.Sprintf(valueFormat, v))
		}
		b.WriteString(" |\n")
	}
	fmt.Fprintf(&b, "\n%d rows\n", len(s.Points))
	return b.String()
}

// printMarkdown renders md for the terminal, falling back to plain text.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Fprintf(os.Stderr, "Warning: markdown rendering failed: %v\n", err)
	fmt.Print(md)
}
