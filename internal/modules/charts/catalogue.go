package charts

import (
	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/modules/classifier"
)

// Kind is the drawing style of a chart.
type Kind string

const (
	KindBar     Kind = "bar"
	KindLine    Kind = "line"
	KindScatter Kind = "scatter"
)

// Palette is the series colour order used by every chart.
var Palette = []string{"#242852", "#C00000", "#5AA2AE", "#FFC000", "#ACCBF9", "#00B050"}

// Spec describes one chart of the report.
type Spec struct {
	Title       string   `json:"title"`
	Kind        Kind     `json:"kind"`
	Instruments []string `json:"instruments"`
	ByRate      bool     `json:"by_rate"`
	Monthly     bool     `json:"monthly"`
}

// PageSpec is one report page.
type PageSpec struct {
	Number int    `json:"number"`
	Charts []Spec `json:"charts"`
}

// Chart is a Spec evaluated against data.
type Chart struct {
	Spec
	Series Series `json:"series"`
}

// Page is a PageSpec evaluated against data.
type Page struct {
	Number int     `json:"number"`
	Charts []Chart `json:"charts"`
}

// Catalogue returns the fixed two-page report layout.
func Catalogue() []PageSpec {
	auction := classifier.AuctionBands()
	fixed := classifier.FixedRateBands()
	return []PageSpec{
		{
			Number: 1,
			Charts: []Spec{
				{Title: "BOJ auction purchases of JGBs, monthly ¥bn", Kind: KindBar, Instruments: auction, Monthly: true},
				{Title: "BOJ fixed-rate purchases of JGBs, monthly ¥bn", Kind: KindBar, Instruments: fixed, Monthly: true},
				{Title: "All BOJ JPY operations, monthly ¥bn", Kind: KindLine, Instruments: []string{classifier.All}, Monthly: true},
			},
		},
		{
			Number: 2,
			Charts: []Spec{
				{Title: "BOJ auction purchases of JGBs, daily ¥bn", Kind: KindScatter, Instruments: auction},
				{Title: "BOJ fixed-rate purchases of JGBs, daily ¥bn", Kind: KindScatter, Instruments: fixed},
				{Title: "Rate for fixed-rate operations, daily %", Kind: KindScatter, Instruments: fixed, ByRate: true},
			},
		},
	}
}

// BuildReport evaluates the catalogue over ops within [start, end].
func BuildReport(ops []*domain.Operation, start, end civil.Date) []Page {
	specs := Catalogue()
	pages := make([]Page, len(specs))
	for i, ps := range specs {
		page := Page{Number: ps.Number, Charts: make([]Chart, len(ps.Charts))}
		for j, spec := range ps.Charts {
			page.Charts[j] = Chart{
				Spec: spec,
				Series: Query(ops, QueryOptions{
					Instruments: spec.Instruments,
					Start:       start,
					End:         end,
					ByRate:      spec.ByRate,
					Monthly:     spec.Monthly,
				}),
			}
		}
		pages[i] = page
	}
	return pages
}
