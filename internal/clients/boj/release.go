package boj

import (
	"bytes"
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/clientdata"
	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/modules/normalize"
	"github.com/xuri/excelize/v2"
)

// ReleaseSheet is the worksheet holding the operation tables.
const ReleaseSheet = "ope1"

// ReleaseURL returns the address of the release covering month.
func (c *Client) ReleaseURL(month civil.Date) string {
	return fmt.Sprintf("%s/%04d/ope%02d%02d.xlsx", c.releaseBaseURL, month.Year, month.Year%100, int(month.Month))
}

// FetchRelease downloads the monthly release covering month and returns its
// operation sheet with raw cell values (dates stay spreadsheet serials).
func (c *Client) FetchRelease(ctx context.Context, month civil.Date) (normalize.Table, error) {
	month = domain.MonthStart(month)
	body, err := c.fetch(ctx, download{
		table:  clientdata.TableReleaseFiles,
		key:    fmt.Sprintf("%04d-%02d", month.Year, int(month.Month)),
		url:    c.ReleaseURL(month),
		covers: month,
	})
	if err != nil {
		return normalize.Table{}, fmt.Errorf("release %04d-%02d: %w", month.Year, int(month.Month), err)
	}

	t, err := ReadReleaseSheet(body)
	if err != nil {
		return normalize.Table{}, fmt.Errorf("release %04d-%02d: %w", month.Year, int(month.Month), err)
	}
	return t, nil
}

// ReadReleaseSheet parses workbook bytes into the operation sheet's table.
// An unreadable workbook or missing sheet yields domain.ErrResourceUnavailable.
func ReadReleaseSheet(workbook []byte) (normalize.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(workbook))
	if err != nil {
		return normalize.Table{}, fmt.Errorf("unreadable workbook: %v: %w", err, domain.ErrResourceUnavailable)
	}
	defer f.Close()

	rows, err := f.GetRows(ReleaseSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return normalize.Table{}, fmt.Errorf("sheet %s: %v: %w", ReleaseSheet, err, domain.ErrResourceUnavailable)
	}
	return normalize.NewTable(rows), nil
}
