// Package normalize turns the raw tables published in monthly releases and
// daily pages into aggregated rows keyed by date and canonical instrument.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// CellKind is the type of value held by a Cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellDate
)

// Cell is one value of a raw table.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Date   civil.Date
}

func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }
func NumberCell(f float64) Cell { return Cell{Kind: CellNumber, Number: f} }
func DateCell(d civil.Date) Cell { return Cell{Kind: CellDate, Date: d} }

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// ParseCell interprets a raw string from a workbook or web page. Thousands
// separators and a trailing percent sign are ignored for numbers; "-" and
// blank strings are empty.
func ParseCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	switch s {
	// ASCII hyphen, full-width hyphen-minus, horizontal bar, em dash
	case "", "-", "\uff0d", "\u2015", "\u2014":
		return Cell{}
	}
	num := strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), "%")
	if f, err := strconv.ParseFloat(num, 64); err == nil {
		return NumberCell(f)
	}
	if d, err := civil.ParseDate(s); err == nil {
		return DateCell(d)
	}
	return TextCell(s)
}

// Int returns the cell as an integer when it holds a whole number.
func (c Cell) Int() (int64, bool) {
	if c.Kind != CellNumber || c.Number != math.Trunc(c.Number) {
		return 0, false
	}
	return int64(c.Number), true
}

// String returns the text form of the cell.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellDate:
		return c.Date.String()
	}
	return ""
}

// Table is a rectangular-ish grid of cells. Rows may be ragged.
type Table struct {
	Rows [][]Cell
}

// NewTable builds a table by parsing every raw string.
func NewTable(raw [][]string) Table {
	rows := make([][]Cell, len(raw))
	for i, r := range raw {
		rows[i] = make([]Cell, len(r))
		for j, s := range r {
			rows[i][j] = ParseCell(s)
		}
	}
	return Table{Rows: rows}
}

// Width returns the length of the longest row.
func (t Table) Width() int {
	w := 0
	for _, r := range t.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Cell returns the cell at (row, col), empty when out of range.
func (t Table) Cell(row, col int) Cell {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return Cell{}
	}
	return t.Rows[row][col]
}

// Block is a half-open row range [Start, End).
type Block struct {
	Start int
	End   int
}

// Len returns the number of rows in the block.
func (b Block) Len() int { return b.End - b.Start }

// LocateBlocks returns the maximal runs of rows whose cell in col holds an
// integer. Title and footer rows must not hold an integer in that column.
func LocateBlocks(t Table, col int) []Block {
	var blocks []Block
	start := -1
	for i := range t.Rows {
		_, isInt := t.Cell(i, col).Int()
		switch {
		case isInt && start < 0:
			start = i
		case !isInt && start >= 0:
			blocks = append(blocks, Block{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		blocks = append(blocks, Block{Start: start, End: len(t.Rows)})
	}
	return blocks
}

// serialEpochOffset is the number of days between the spreadsheet epoch
// (1899-12-30) and the Unix epoch.
const serialEpochOffset = 25569

// SerialDate converts a spreadsheet day count into a calendar date (UTC).
func SerialDate(serial float64) civil.Date {
	secs := (serial - serialEpochOffset) * 86400
	return civil.DateOf(time.Unix(int64(math.Floor(secs)), 0).UTC())
}

// cellDate reads a native date or a spreadsheet serial.
func cellDate(c Cell) (civil.Date, bool) {
	switch c.Kind {
	case CellDate:
		return c.Date, true
	case CellNumber:
		return SerialDate(c.Number), true
	}
	return civil.Date{}, false
}

// cellInt reads an optional whole-number volume.
func cellInt(c Cell) *int64 {
	if c.Kind != CellNumber {
		return nil
	}
	v := int64(math.Round(c.Number))
	return &v
}
