package main

import (
	"flag"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/bojops/internal/modules/charts"
)

func TestStringList(t *testing.T) {
	var l stringList
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.Var(&l, "i", "")

	require.NoError(t, fs.Parse([]string{"-i", "CP", "-i", "JGBs: 5-10y, JGBs: 1-3y"}))
	assert.Equal(t, stringList{"CP", "JGBs: 5-10y", "JGBs: 1-3y"}, l)
	assert.Equal(t, "CP,JGBs: 5-10y,JGBs: 1-3y", l.String())
}

func TestQueryOptions(t *testing.T) {
	first := civil.Date{Year: 2022, Month: 1, Day: 4}
	last := civil.Date{Year: 2024, Month: 3, Day: 15}
	today := civil.Date{Year: 2024, Month: 3, Day: 18}

	c := &queryCmd{instruments: stringList{"CP"}}
	opts, err := c.options(first, last, today)
	require.NoError(t, err)
	assert.Equal(t, first, opts.Start)
	assert.Equal(t, last, opts.End)
	assert.Equal(t, []string{"CP"}, opts.Instruments)

	c = &queryCmd{instruments: stringList{"CP"}, start: "2023-01-01", end: "2023-06-30", byRate: true, monthly: true}
	opts, err = c.options(first, last, today)
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2023, Month: 1, Day: 1}, opts.Start)
	assert.Equal(t, civil.Date{Year: 2023, Month: 6, Day: 30}, opts.End)
	assert.True(t, opts.ByRate)
	assert.True(t, opts.Monthly)

	c = &queryCmd{window: "1Y"}
	opts, err = c.options(first, last, today)
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2023, Month: 3, Day: 18}, opts.Start)

	_, err = (&queryCmd{window: "2W"}).options(first, last, today)
	assert.Error(t, err)
	_, err = (&queryCmd{start: "March"}).options(first, last, today)
	assert.Error(t, err)
}

func TestSeriesMarkdown(t *testing.T) {
	s := charts.Series{
		Columns: []string{"JGBs: 5-10y", "CP"},
		Points: []charts.Point{
			{Date: civil.Date{Year: 2022, Month: 6, Day: 1}, Values: []float64{400, 0}},
			{Date: civil.Date{Year: 2022, Month: 6, Day: 2}, Values: []float64{300, 200}},
		},
	}

	md := seriesMarkdown(s)
	lines := strings.Split(md, "\n")
	assert.Equal(t, "## JGBs: 5-10y, CP (volume, bn)", lines[0])
	assert.Equal(t, "| Date | JGBs: 5-10y | CP |", lines[2])
	assert.Equal(t, "|---|---:|---:|", lines[3])
	assert.Equal(t, "| 2022-06-01 | 400.0 | 0.0 |", lines[4])
	assert.Equal(t, "| 2022-06-02 | 300.0 | 200.0 |", lines[5])
	assert.Contains(t, md, "2 rows")
}

func TestSeriesMarkdown_MonthlyRates(t *testing.T) {
	s := charts.Series{
		Columns: []string{"JGBs: FR 5-10y"},
		ByRate:  true,
		Monthly: true,
		Points: []charts.Point{
			{Date: civil.Date{Year: 2022, Month: 6, Day: 1}, Values: []float64{0.25}},
		},
	}

	md := seriesMarkdown(s)
	assert.Contains(t, md, "(rate, %)")
	assert.Contains(t, md, "| Month | JGBs: FR 5-10y |")
	assert.Contains(t, md, "| 2022-06 | 0.250 |")
}

func TestSeriesMarkdown_Empty(t *testing.T) {
	md := seriesMarkdown(charts.Series{Columns: []string{"CP"}})
	assert.Contains(t, md, "No operations in this window.")
	assert.NotContains(t, md, "|")
}
