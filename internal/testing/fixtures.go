package testing

import (
	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/modules/normalize"
)

// Descriptions as they appear on daily results pages.
const (
	ResultsJGB510   = "Outright Purchases of Japanese Government Bonds (residual maturity of more than 5 years and up to 10 years)"
	ResultsJGBFR510 = "Outright Purchases of Japanese Government Bonds (fixed-rate method) (residual maturity of more than 5 years and up to 10 years)"
	ResultsCP       = "Outright purchases of CP"
)

// ReleaseSerialDates are the dates present in ReleaseTable, as Excel serials.
var ReleaseSerialDates = []float64{44713, 44714}

// ReleaseTable returns a 13-column release sheet holding auction rows for
// 2022-06-01 and 2022-06-02 and no fixed-rate table.
func ReleaseTable() normalize.Table {
	return normalize.Table{Rows: [][]normalize.Cell{
		releaseText("Outright Purchases of Japanese Government Bonds"),
		releaseText("Date"),
		releaseRow(44713, 1000, 400, 0.045, "More than 5 years and up to 10 years"),
		releaseRow(44713, 900, 300, 0.001, "More than 1 year and up to 3 years"),
		releaseRow(44714, 700, 200, 0.2, "More than 25 years"),
		releaseText("Note: amounts in 100 million yen"),
	}}
}

func releaseRow(serial float64, comp, succ int64, yield float64, desc string) []normalize.Cell {
	r := make([]normalize.Cell, 13)
	r[0] = normalize.NumberCell(serial)
	r[4] = normalize.NumberCell(float64(comp))
	r[5] = normalize.NumberCell(float64(succ))
	r[8] = normalize.NumberCell(yield)
	r[11] = normalize.TextCell(desc)
	return r
}

func releaseText(s string) []normalize.Cell {
	r := make([]normalize.Cell, 13)
	r[0] = normalize.TextCell(s)
	return r
}

// ResultsTable returns a daily results table with an auction, a fixed-rate
// purchase and a CP purchase.
func ResultsTable() normalize.Table {
	return normalize.NewTable([][]string{
		{ResultsJGB510, "12,000", "3,000", "", "", "0.240"},
		{ResultsJGBFR510, "500", "500", "", "", ""},
		{"", "", "", "", "", ""},
		{ResultsCP, "5,000", "2,000", "", "", "-"},
	})
}

// OfferTable returns a notes table stating the 10-year fixed-rate yield.
func OfferTable() normalize.Table {
	return normalize.NewTable([][]string{
		{"Notes"},
		{"(1) The Bank's purchasing yield of 10-year JGB (#366) is set at 0.250% per annum."},
		{"(2) Amounts are in 100 million yen."},
	})
}

// Operation builds an operation on date holding a single JGB 5-10y auction.
func Operation(date civil.Date, successful int64, rate float64) *domain.Operation {
	draft := domain.NewOperationDraft(date)
	td, err := draft.AddTransaction("JGBs: 5-10y")
	if err != nil {
		panic(err)
	}
	td.SetCompetitiveBids(domain.Int64(successful * 3)).
		SetSuccessfulBids(domain.Int64(successful)).
		SetRate(domain.Float64(rate))
	return draft.Finalize()
}

// Operations builds one operation per day from start, for n days.
func Operations(start civil.Date, n int) []*domain.Operation {
	ops := make([]*domain.Operation, 0, n)
	for i := 0; i < n; i++ {
		ops = append(ops, Operation(start.AddDays(i), int64(100+i), 0.2+float64(i)/1000))
	}
	return ops
}
