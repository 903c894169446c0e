// Package charts answers time-series queries over operation records and
// describes the fixed set of report charts.
package charts

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/modules/classifier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// QueryOptions selects the instruments, window and mode of a query.
type QueryOptions struct {
	Instruments []string
	Start       civil.Date
	End         civil.Date
	ByRate      bool // rates instead of volumes
	Monthly     bool // collapse to calendar months
}

// Point is one row of a series: a date (or month start) and one value per column.
type Point struct {
	Date   civil.Date `json:"date"`
	Values []float64  `json:"values"`
}

// Series is the result of a query.
type Series struct {
	Columns []string `json:"columns"`
	Points  []Point  `json:"points"`
	ByRate  bool     `json:"by_rate"`
	Monthly bool     `json:"monthly"`
}

// Column returns the values of the named column.
func (s Series) Column(name string) []float64 {
	idx := -1
	for i, c := range s.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Values[idx]
	}
	return out
}

// Query evaluates opts over ops. Requesting "All" adds the JGB-family total
// as a column and forces volume mode. Days on which none of the requested
// instruments traded are left out. Absent instruments contribute 0.
func Query(ops []*domain.Operation, opts QueryOptions) Series {
	filter := opts.Instruments
	byRate := opts.ByRate
	if contains(opts.Instruments, classifier.All) {
		filter = union(classifier.JGBFamily(), opts.Instruments)
		byRate = false
	}

	var selected []*domain.Operation
	for _, op := range ops {
		d := op.Date()
		if d.Before(opts.Start) || d.After(opts.End) {
			continue
		}
		if op.HasAny(filter) {
			selected = append(selected, op)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Date().Before(selected[j].Date())
	})

	series := Series{
		Columns: append([]string(nil), opts.Instruments...),
		Points:  make([]Point, 0, len(selected)),
		ByRate:  byRate,
		Monthly: opts.Monthly,
	}
	for _, op := range selected {
		values := make([]float64, len(opts.Instruments))
		for i, inst := range opts.Instruments {
			values[i] = value(op, inst, byRate)
		}
		series.Points = append(series.Points, Point{Date: op.Date(), Values: values})
	}

	if opts.Monthly {
		series.Points = monthly(series.Points, len(series.Columns), byRate)
	}
	return series
}

func value(op *domain.Operation, instrument string, byRate bool) float64 {
	switch {
	case byRate:
		return op.TransactionRate(instrument)
	case instrument == classifier.All:
		return op.TransactionValue("")
	default:
		return op.TransactionValue(instrument)
	}
}

// monthly groups points by month start: volumes are summed, rates averaged.
func monthly(points []Point, width int, byRate bool) []Point {
	var out []Point
	var bucket [][]float64
	flush := func(month civil.Date) {
		values := make([]float64, width)
		for i, col := range bucket {
			if byRate {
				values[i] = stat.Mean(col, nil)
			} else {
				values[i] = floats.Sum(col)
			}
		}
		out = append(out, Point{Date: month, Values: values})
	}

	var current civil.Date
	for _, p := range points {
		month := domain.MonthStart(p.Date)
		if bucket == nil || month != current {
			if bucket != nil {
				flush(current)
			}
			current = month
			bucket = make([][]float64, width)
		}
		for i, v := range p.Values {
			bucket[i] = append(bucket[i], v)
		}
	}
	if bucket != nil {
		flush(current)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func union(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, v := range b {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
