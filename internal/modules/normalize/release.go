package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/modules/classifier"
	"github.com/shopspring/decimal"
)

// ErrNoDataBlock is returned when a release sheet holds no integer run in
// the bid column.
var ErrNoDataBlock = fmt.Errorf("no data block in release sheet: %w", domain.ErrParseUnavailable)

const (
	// blockColumn is scanned for integers to find the data regions.
	blockColumn = 4
	// fixedRateTitle marks the title row of the fixed-rate table.
	fixedRateTitle = "(fixed-rate method)"
	// fixedRateTitleOffset is the row distance from that title to the data.
	fixedRateTitleOffset = 9
)

// releaseColumns lists date, competitive bids, successful bids, yield and
// description column indices.
type releaseColumns [5]int

var releaseShapes = map[int]releaseColumns{
	13: {0, 4, 5, 8, 11},
	11: {0, 3, 4, 7, 10},
}

var fixedRateColumns = releaseColumns{0, 4, 5, 8, 12}

// ReleaseResult is the normalized content of one monthly release.
type ReleaseResult struct {
	Rows []Row
	// FixedRate is true when the fixed-rate table was found and read.
	FixedRate bool
	// FixedRateNote says why the fixed-rate table was treated as absent.
	FixedRateNote string
}

// Release normalizes the "ope1" sheet of a monthly release. Auction rows
// are aggregated by (date, instrument); fixed-rate rows additionally by
// yield. Rows are returned sorted by date.
func Release(t Table) (*ReleaseResult, error) {
	blocks := LocateBlocks(t, blockColumn)
	if len(blocks) == 0 {
		return nil, ErrNoDataBlock
	}

	width := t.Width()
	cols, ok := releaseShapes[width]
	if !ok {
		return nil, &domain.UnrecognizedTableShapeError{Columns: width}
	}

	auction, err := readBlock(t, blocks[0], cols, func(c Cell) (string, decimal.NullDecimal, error) {
		name, err := classifier.ClassifyReleaseMaturity(c.String())
		return name, decimal.NullDecimal{}, err
	})
	if err != nil {
		return nil, err
	}
	res := &ReleaseResult{Rows: Aggregate(auction)}

	note := fixedRateAbsence(t, blocks, width)
	if note != "" {
		res.FixedRateNote = note
		SortByDate(res.Rows)
		return res, nil
	}

	fixed, err := readBlock(t, blocks[1], fixedRateColumns, func(c Cell) (string, decimal.NullDecimal, error) {
		years, yield, err := classifier.ParseReleaseAnnotation(c.String())
		if err != nil {
			return "", decimal.NullDecimal{}, err
		}
		name, err := classifier.FixedRateBucket(years)
		return name, decimal.NewNullDecimal(yield), err
	})
	if err != nil {
		return nil, err
	}
	res.FixedRate = true
	res.Rows = append(res.Rows, AggregateByYield(fixed)...)
	SortByDate(res.Rows)
	return res, nil
}

// fixedRateAbsence returns a non-empty reason when the second block is not
// a fixed-rate table positioned exactly below its title.
func fixedRateAbsence(t Table, blocks []Block, width int) string {
	if len(blocks) < 2 {
		return "single table"
	}
	title := -1
	for i := range t.Rows {
		if strings.Contains(strings.ToLower(t.Cell(i, 0).String()), fixedRateTitle) {
			title = i
		}
	}
	if title < 0 {
		return "no fixed-rate title"
	}
	if blocks[1].Start-title != fixedRateTitleOffset {
		return fmt.Sprintf("fixed-rate table %d rows below title", blocks[1].Start-title)
	}
	if width <= fixedRateColumns[4] {
		return fmt.Sprintf("fixed-rate table needs %d columns, sheet has %d", fixedRateColumns[4]+1, width)
	}
	return ""
}

type describe func(Cell) (string, decimal.NullDecimal, error)

func readBlock(t Table, b Block, cols releaseColumns, desc describe) ([]Row, error) {
	rows := make([]Row, 0, b.Len())
	for i := b.Start; i < b.End; i++ {
		date, ok := cellDate(t.Cell(i, cols[0]))
		if !ok {
			return nil, fmt.Errorf("row %d: date cell %q: %w", i, t.Cell(i, cols[0]).String(), domain.ErrParseUnavailable)
		}
		name, yield, err := desc(t.Cell(i, cols[4]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if !yield.Valid {
			yield = cellYield(t.Cell(i, cols[3]))
		}
		rows = append(rows, Row{
			Date:            date,
			Instrument:      name,
			CompetitiveBids: cellInt(t.Cell(i, cols[1])),
			SuccessfulBids:  cellInt(t.Cell(i, cols[2])),
			Yield:           yield,
		})
	}
	return rows, nil
}

func cellYield(c Cell) decimal.NullDecimal {
	if c.Kind != CellNumber {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(c.Number))
}

// IsNoDataBlock reports whether err came from a sheet without data rows.
func IsNoDataBlock(err error) bool {
	return errors.Is(err, ErrNoDataBlock)
}
