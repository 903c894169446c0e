package boj

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/clientdata"
	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/modules/normalize"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Daily page prefixes and the position of the table each page is read for.
const (
	resultsPrefix = "ba"
	offerPrefix   = "of"

	resultsTableIndex = 1
	notesTableIndex   = 2
)

// PageURL returns the address of the daily page with prefix ("ba" or "of") for date.
func (c *Client) PageURL(prefix string, date civil.Date) string {
	return fmt.Sprintf("%s/%s%s.htm", c.dailyBaseURL, prefix, pageStamp(date))
}

func pageStamp(date civil.Date) string {
	return fmt.Sprintf("%02d%02d%02d", date.Year%100, int(date.Month), date.Day)
}

// FetchResults returns the results table of the daily results page for date.
// Days without operations have no page and yield domain.ErrResourceUnavailable.
func (c *Client) FetchResults(ctx context.Context, date civil.Date) (normalize.Table, error) {
	return c.fetchPageTable(ctx, resultsPrefix, date, resultsTableIndex)
}

// FetchOffer returns the notes table of the daily offer page for date.
func (c *Client) FetchOffer(ctx context.Context, date civil.Date) (normalize.Table, error) {
	return c.fetchPageTable(ctx, offerPrefix, date, notesTableIndex)
}

func (c *Client) fetchPageTable(ctx context.Context, prefix string, date civil.Date, index int) (normalize.Table, error) {
	key := prefix + pageStamp(date)
	body, err := c.fetch(ctx, download{
		table:  clientdata.TableDailyPages,
		key:    key,
		url:    c.PageURL(prefix, date),
		covers: date,
	})
	if err != nil {
		return normalize.Table{}, fmt.Errorf("page %s: %w", key, err)
	}

	tables, err := ParseTables(bytes.NewReader(body))
	if err != nil {
		return normalize.Table{}, fmt.Errorf("page %s: %w", key, err)
	}
	switch {
	case len(tables) == 0:
		// Missing pages are sometimes served as 200 with an error body
		return normalize.Table{}, fmt.Errorf("page %s has no tables: %w", key, domain.ErrResourceUnavailable)
	case len(tables) <= index:
		return normalize.Table{}, fmt.Errorf("page %s has %d tables, want index %d: %w", key, len(tables), index, domain.ErrParseUnavailable)
	}
	return tables[index], nil
}

// ParseTables extracts every <table> of an HTML document in document order.
// Header rows (rows made only of <th> cells) are dropped and colspan cells
// are repeated across the columns they span.
func ParseTables(r io.Reader) ([]normalize.Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var tables []normalize.Table
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Table {
			tables = append(tables, normalize.NewTable(tableRows(n)))
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return tables, nil
}

// tableRows collects the rows owned by table, skipping nested tables.
func tableRows(table *html.Node) [][]string {
	var rows [][]string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != html.ElementNode {
				continue
			}
			switch child.DataAtom {
			case atom.Table:
				continue
			case atom.Tr:
				if row, header := rowCells(child); len(row) > 0 && !header {
					rows = append(rows, row)
				}
			default:
				walk(child)
			}
		}
	}
	walk(table)
	return rows
}

func rowCells(tr *html.Node) (cells []string, header bool) {
	header = true
	for td := tr.FirstChild; td != nil; td = td.NextSibling {
		if td.Type != html.ElementNode || (td.DataAtom != atom.Td && td.DataAtom != atom.Th) {
			continue
		}
		if td.DataAtom == atom.Td {
			header = false
		}
		text := strings.Join(strings.Fields(textContent(td)), " ")
		for i := 0; i < colspan(td); i++ {
			cells = append(cells, text)
		}
	}
	return cells, header
}

func colspan(n *html.Node) int {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, "colspan") {
			if v, err := strconv.Atoi(strings.TrimSpace(a.Val)); err == nil && v > 1 && v < 100 {
				return v
			}
		}
	}
	return 1
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			sb.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}
