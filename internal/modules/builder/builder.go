// Package builder assembles normalized rows into operation records.
package builder

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/modules/classifier"
	"github.com/aristath/bojops/internal/modules/normalize"
)

// Build creates the operation for date from its normalized rows. Rows for
// other dates are rejected. When annotations are given, each one sets the
// rate of the transaction in its fixed-rate bucket. Repeating a yield is
// harmless; a different second yield for the same bucket is an error.
func Build(date civil.Date, rows []normalize.Row, annotations []normalize.Annotation) (*domain.Operation, error) {
	draft := domain.NewOperationDraft(date)

	for _, r := range rows {
		if r.Date != date {
			return nil, fmt.Errorf("row for %s passed to build of %s", r.Date, date)
		}
		if !classifier.IsCanonical(r.Instrument) {
			return nil, &domain.UnrecognizedInstrumentError{Raw: r.Instrument, Reason: "not canonical"}
		}
		td, err := draft.AddTransaction(r.Instrument)
		if err != nil {
			return nil, err
		}
		td.SetCompetitiveBids(r.CompetitiveBids).SetSuccessfulBids(r.SuccessfulBids)
		if r.Yield.Valid {
			td.SetRate(domain.Float64(r.Yield.Decimal.InexactFloat64()))
		}
	}

	annotated := make(map[string]float64, len(annotations))
	for _, a := range annotations {
		instrument, err := classifier.FixedRateBucket(a.Maturity)
		if err != nil {
			return nil, err
		}
		td := draft.Transaction(instrument)
		if td == nil {
			return nil, &domain.OrphanAnnotationError{Date: date, Maturity: a.Maturity, Instrument: instrument}
		}
		y := a.Yield.InexactFloat64()
		if prev, ok := annotated[instrument]; ok {
			if prev != y {
				return nil, &domain.ConflictingRateError{Date: date, Instrument: instrument, First: prev, Second: y}
			}
			continue
		}
		annotated[instrument] = y
		td.SetRate(domain.Float64(y))
	}

	return draft.Finalize(), nil
}

// BuildAll groups rows by date and builds one operation per date, in
// ascending date order.
func BuildAll(rows []normalize.Row) ([]*domain.Operation, error) {
	var dates []civil.Date
	byDate := make(map[civil.Date][]normalize.Row)
	for _, r := range rows {
		if _, ok := byDate[r.Date]; !ok {
			dates = append(dates, r.Date)
		}
		byDate[r.Date] = append(byDate[r.Date], r)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	ops := make([]*domain.Operation, 0, len(dates))
	for _, d := range dates {
		op, err := Build(d, byDate[d], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build operation for %s: %w", d, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}
