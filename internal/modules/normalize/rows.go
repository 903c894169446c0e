package normalize

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Row is one normalized observation: a canonical instrument on a date.
type Row struct {
	Date            civil.Date
	Instrument      string
	CompetitiveBids *int64
	SuccessfulBids  *int64
	Yield           decimal.NullDecimal
}

// Annotation is a fixed-rate purchasing yield stated in a day's offer notes.
type Annotation struct {
	Date     civil.Date
	Maturity int
	Yield    decimal.Decimal
}

type rowKey struct {
	date       civil.Date
	instrument string
	yield      string
}

// Aggregate merges rows sharing (date, instrument): bid volumes are summed
// and the first published yield is kept. Output keeps first-seen order.
func Aggregate(rows []Row) []Row {
	return aggregate(rows, func(r Row) rowKey {
		return rowKey{date: r.Date, instrument: r.Instrument}
	})
}

// AggregateByYield merges rows sharing (date, instrument, yield). Yields are
// compared exactly.
func AggregateByYield(rows []Row) []Row {
	return aggregate(rows, func(r Row) rowKey {
		k := rowKey{date: r.Date, instrument: r.Instrument}
		if r.Yield.Valid {
			k.yield = r.Yield.Decimal.String()
		}
		return k
	})
}

func aggregate(rows []Row, keyOf func(Row) rowKey) []Row {
	index := make(map[rowKey]int, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		k := keyOf(r)
		i, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, Row{
				Date:            r.Date,
				Instrument:      r.Instrument,
				CompetitiveBids: addBids(nil, r.CompetitiveBids),
				SuccessfulBids:  addBids(nil, r.SuccessfulBids),
				Yield:           r.Yield,
			})
			continue
		}
		agg := &out[i]
		agg.CompetitiveBids = addBids(agg.CompetitiveBids, r.CompetitiveBids)
		agg.SuccessfulBids = addBids(agg.SuccessfulBids, r.SuccessfulBids)
		if !agg.Yield.Valid {
			agg.Yield = r.Yield
		}
	}
	return out
}

// addBids sums two optional volumes; absent only when both are absent.
func addBids(a, b *int64) *int64 {
	if a == nil && b == nil {
		return nil
	}
	var sum int64
	if a != nil {
		sum += *a
	}
	if b != nil {
		sum += *b
	}
	return &sum
}

// SortByDate orders rows by date, keeping the relative order of rows on
// the same date.
func SortByDate(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
}
