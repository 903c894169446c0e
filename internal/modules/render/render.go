// Package render draws report pages to a multi-page PDF.
package render

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/aristath/bojops/internal/modules/charts"
	"github.com/rs/zerolog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"
)

// A4 portrait.
const (
	pageWidth  = 21 * vg.Centimeter
	pageHeight = 29.7 * vg.Centimeter
)

const tickFormat = "06/01"

// Renderer draws evaluated report pages.
type Renderer struct {
	log zerolog.Logger
}

// NewRenderer creates a new PDF renderer
func NewRenderer(log zerolog.Logger) *Renderer {
	return &Renderer{log: log.With().Str("component", "renderer").Logger()}
}

// Render draws each page independently and writes them to w in page-number order.
func (r *Renderer) Render(pages []charts.Page, w io.Writer) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to render")
	}
	ordered := append([]charts.Page(nil), pages...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	canvas := vgpdf.New(pageWidth, pageHeight)
	for i, page := range ordered {
		if i > 0 {
			canvas.NextPage()
		}
		if err := r.drawPage(draw.New(canvas), page); err != nil {
			return fmt.Errorf("failed to draw page %d: %w", page.Number, err)
		}
	}

	if _, err := canvas.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// RenderFile renders to path, replacing it only once the document is complete.
func (r *Renderer) RenderFile(pages []charts.Page, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create temporary report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := r.Render(pages, tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}

	r.log.Info().Str("path", path).Int("pages", len(pages)).Msg("Report written")
	return nil
}

func (r *Renderer) drawPage(dc draw.Canvas, page charts.Page) error {
	if len(page.Charts) == 0 {
		return nil
	}
	plots := make([][]*plot.Plot, len(page.Charts))
	for i, c := range page.Charts {
		p, err := chartPlot(c)
		if err != nil {
			return fmt.Errorf("chart %q: %w", c.Title, err)
		}
		plots[i] = []*plot.Plot{p}
	}

	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadTop:    vg.Centimeter,
		PadBottom: vg.Centimeter,
		PadLeft:   vg.Centimeter,
		PadRight:  vg.Centimeter,
		PadY:      vg.Centimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}
	r.log.Debug().Int("page", page.Number).Int("charts", len(page.Charts)).Msg("Page drawn")
	return nil
}

func chartPlot(c charts.Chart) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "¥bn"
	if c.Series.ByRate {
		p.Y.Label.Text = "%"
	}
	p.Legend.Top = true
	p.Legend.Left = true

	if len(c.Series.Points) == 0 {
		return p, nil
	}

	var err error
	switch c.Kind {
	case charts.KindBar:
		err = addBars(p, c.Series)
	case charts.KindLine:
		err = addLines(p, c.Series)
	case charts.KindScatter:
		err = addScatter(p, c.Series)
	default:
		err = fmt.Errorf("unknown chart kind %q", c.Kind)
	}
	return p, err
}

// addBars stacks one bar series per column over month labels.
func addBars(p *plot.Plot, s charts.Series) error {
	labels := make([]string, len(s.Points))
	for i, pt := range s.Points {
		labels[i] = pt.Date.In(time.UTC).Format(tickFormat)
	}

	var below *plotter.BarChart
	for col, name := range s.Columns {
		values := make(plotter.Values, len(s.Points))
		for i, pt := range s.Points {
			values[i] = pt.Values[col]
		}
		bars, err := plotter.NewBarChart(values, 4*vg.Millimeter)
		if err != nil {
			return err
		}
		bars.Color = seriesColor(col)
		bars.LineStyle.Width = 0
		if below != nil {
			bars.StackOn(below)
		}
		below = bars
		p.Add(bars)
		p.Legend.Add(name, bars)
	}
	p.NominalX(labels...)
	return nil
}

func addLines(p *plot.Plot, s charts.Series) error {
	for col, name := range s.Columns {
		line, err := plotter.NewLine(xys(s, col))
		if err != nil {
			return err
		}
		line.Color = seriesColor(col)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	p.X.Tick.Marker = plot.TimeTicks{Format: tickFormat}
	return nil
}

func addScatter(p *plot.Plot, s charts.Series) error {
	for col, name := range s.Columns {
		sc, err := plotter.NewScatter(xys(s, col))
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = seriesColor(col)
		sc.GlyphStyle.Radius = vg.Points(1.5)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add(name, sc)
	}
	p.X.Tick.Marker = plot.TimeTicks{Format: tickFormat}
	return nil
}

// xys maps one column onto (unix seconds, value) pairs.
func xys(s charts.Series, col int) plotter.XYs {
	out := make(plotter.XYs, len(s.Points))
	for i, pt := range s.Points {
		out[i].X = float64(pt.Date.In(time.UTC).Unix())
		out[i].Y = pt.Values[col]
	}
	return out
}

func seriesColor(i int) color.Color {
	return hexColor(charts.Palette[i%len(charts.Palette)])
}

// hexColor parses "#RRGGBB".
func hexColor(s string) color.Color {
	if len(s) != 7 || s[0] != '#' {
		return color.Black
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
