package render

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/modules/charts"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOps(t *testing.T) []*domain.Operation {
	t.Helper()
	var ops []*domain.Operation
	start := civil.Date{Year: 2022, Month: 4, Day: 1}
	for i := 0; i < 90; i += 3 {
		d := domain.NewOperationDraft(start.AddDays(i))
		td, err := d.AddTransaction("JGBs: 5-10y")
		require.NoError(t, err)
		td.SetSuccessfulBids(domain.Int64(int64(100 + i)))
		td, err = d.AddTransaction("JGBs: FR 5-10y")
		require.NoError(t, err)
		td.SetSuccessfulBids(domain.Int64(20)).SetRate(domain.Float64(0.25))
		ops = append(ops, d.Finalize())
	}
	return ops
}

func newRenderer() *Renderer {
	return NewRenderer(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestRender_TwoPagePDF(t *testing.T) {
	ops := testOps(t)
	pages := charts.BuildReport(ops, ops[0].Date(), ops[len(ops)-1].Date())

	var buf bytes.Buffer
	require.NoError(t, newRenderer().Render(pages, &buf))

	out := buf.Bytes()
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Contains(t, string(out), "/Count 2")
}

func TestRender_EmptySeries(t *testing.T) {
	pages := charts.BuildReport(nil, civil.Date{Year: 2022, Month: 1, Day: 1}, civil.Date{Year: 2022, Month: 2, Day: 1})

	var buf bytes.Buffer
	require.NoError(t, newRenderer().Render(pages, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestRender_NoPages(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, newRenderer().Render(nil, &buf))
}

func TestRenderFile(t *testing.T) {
	ops := testOps(t)
	pages := charts.BuildReport(ops, ops[0].Date(), ops[len(ops)-1].Date())
	path := filepath.Join(t.TempDir(), "out", "BOJ_plot.pdf")

	require.NoError(t, newRenderer().RenderFile(pages, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".report-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestHexColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x24, G: 0x28, B: 0x52, A: 0xff}, hexColor("#242852"))
	assert.Equal(t, color.Black, hexColor("red"))
}
