package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/modules/classifier"
	"github.com/shopspring/decimal"
)

// Column indices of the results table on a daily page.
const (
	dailyName        = 0
	dailyCompetitive = 1
	dailySuccessful  = 2
	dailyYield       = 5
)

// DailyResults normalizes the results table of a daily page. Rows with an
// empty description are ignored; every other description must classify.
func DailyResults(date civil.Date, t Table) ([]Row, error) {
	if w := t.Width(); w <= dailyYield {
		return nil, fmt.Errorf("results table has %d columns: %w", w, domain.ErrParseUnavailable)
	}

	rows := make([]Row, 0, len(t.Rows))
	for i := range t.Rows {
		nameCell := t.Cell(i, dailyName)
		if nameCell.IsEmpty() {
			continue
		}
		name, err := classifier.Classify(nameCell.String())
		if err != nil {
			return nil, fmt.Errorf("results %s row %d: %w", date, i, err)
		}
		rows = append(rows, Row{
			Date:            date,
			Instrument:      name,
			CompetitiveBids: cellInt(t.Cell(i, dailyCompetitive)),
			SuccessfulBids:  cellInt(t.Cell(i, dailySuccessful)),
			Yield:           cellYield(t.Cell(i, dailyYield)),
		})
	}
	return Aggregate(rows), nil
}

var purchasingYield = regexp.MustCompile(`.+ Bank['’]s purchasing yield of ([0-9]?[0-9])-year JGB .+ at ([0-9]\.[0-9][0-9][0-9])%.+`)

// OfferNotes extracts the fixed-rate purchasing yields stated in the notes
// table of a daily offer page. Rows that do not state a yield are ignored
// and repeated (maturity, yield) pairs are collapsed.
func OfferNotes(date civil.Date, t Table) []Annotation {
	seen := make(map[string]bool)
	var out []Annotation
	for _, row := range t.Rows {
		parts := make([]string, 0, len(row))
		for _, c := range row {
			if !c.IsEmpty() {
				parts = append(parts, c.String())
			}
		}
		m := purchasingYield.FindStringSubmatch(strings.Join(strings.Fields(strings.Join(parts, " ")), " "))
		if m == nil {
			continue
		}
		years, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		yield, err := decimal.NewFromString(m[2])
		if err != nil {
			continue
		}
		key := m[1] + "|" + yield.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Annotation{Date: date, Maturity: years, Yield: yield})
	}
	return out
}
